package chat

import (
	"context"

	"github.com/Zwang-23/medassist/internal/entity"
)

type Retriever interface {
	Query(ctx context.Context, text, indexPath string, k int) ([]entity.Chunk, error)
}

type Streamer interface {
	StreamChat(ctx context.Context, systemMsg, userMsg string) (entity.CompletionStream, error)
}

type Sessions interface {
	History(sess *entity.Session) []entity.Turn
	HasDocuments(sess *entity.Session) bool
	Append(sess *entity.Session, userMsg, assistantMsg string)
}
