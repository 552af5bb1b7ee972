package chat

import (
	"context"

	"github.com/Zwang-23/medassist/internal/entity"
)

type Sessions interface {
	GetOrCreate(id string) *entity.Session
	Replace(old *entity.Session) *entity.Session
	MarkIndexed(sess *entity.Session, filename, notice string)
	HasDocuments(sess *entity.Session) bool
}

type Ingester interface {
	Ingest(ctx context.Context, sess *entity.Session, savedFile string) (entity.IngestResult, error)
}

type Chatter interface {
	Answer(ctx context.Context, sess *entity.Session, message string) (<-chan entity.StreamEvent, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
