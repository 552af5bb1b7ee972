package chat

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/Zwang-23/medassist/internal/entity"
)

const systemMessage = "You are a helpful assistant specialized in medical research. " +
	"Use the 'CONVERSATION HISTORY' provided in the prompt to maintain context and continuity across messages. " +
	"If 'DOCUMENT CONTEXT' is provided, use it to answer questions related to the uploaded PDF. " +
	"If no 'DOCUMENT CONTEXT' is provided and the question requires document-specific information, " +
	"respond with: 'Please upload the PDF file you would like me to assist you with regarding medical research. Thank you!' " +
	"For general questions not requiring documents, provide a full and complete answer, referencing the conversation history if relevant. " +
	"Format your responses using clean, single-column Markdown for clarity: use `-` for bullet points (one per line, no extra spaces or tabs), " +
	"`**` for bold text, and `\\n` for line breaks. Ensure responses are left-aligned, concise, and free of extra whitespace, tabs, " +
	"or column-like formatting. Do not use multiple spaces, tabs, or any HTML that could cause layout issues."

// UseCase answers questions over the session's indexed document,
// streaming model output as it arrives. The (question, answer) pair
// is committed to history only after the stream completes naturally.
type UseCase struct {
	retriever Retriever
	streamer  Streamer
	sessions  Sessions
	topK      int
}

func NewUseCase(retriever Retriever, streamer Streamer, sessions Sessions, topK int) *UseCase {
	return &UseCase{
		retriever: retriever,
		streamer:  streamer,
		sessions:  sessions,
		topK:      topK,
	}
}

// Answer validates the message, assembles the prompt and returns a
// channel of stream events. The channel is closed when the answer is
// complete or the stream fails.
func (u *UseCase) Answer(ctx context.Context, sess *entity.Session, message string) (<-chan entity.StreamEvent, error) {
	if strings.TrimSpace(message) == "" {
		return nil, entity.ErrNoMessage
	}

	prompt := u.buildPrompt(ctx, sess, message)
	events := make(chan entity.StreamEvent)
	go u.stream(ctx, sess, message, prompt, events)
	return events, nil
}

func (u *UseCase) buildPrompt(ctx context.Context, sess *entity.Session, message string) string {
	logger := ctxzap.Extract(ctx)
	var sections []string

	if u.sessions.HasDocuments(sess) {
		chunks, err := u.retriever.Query(ctx, message, sess.IndexPath, u.topK)
		switch {
		case err != nil:
			logger.Warn("document retrieval failed", zap.Error(err))
		case len(chunks) == 0:
			logger.Warn("no relevant chunks found for question")
		default:
			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Text
			}
			sections = append(sections, "DOCUMENT CONTEXT:\n"+strings.Join(texts, "\n"))
		}
	}

	if formatted := formatHistory(u.sessions.History(sess)); formatted != "" {
		sections = append(sections, "CONVERSATION HISTORY:\n"+formatted)
	}

	sections = append(sections, "USER QUESTION: "+message)
	return strings.Join(sections, "\n\n")
}

// formatHistory renders past turns as "User:"/"Assistant:" lines.
// The leading turn is the synthetic upload notice and is skipped.
func formatHistory(history []entity.Turn) string {
	if len(history) <= 1 {
		return ""
	}
	lines := make([]string, 0, len(history)-1)
	for _, turn := range history[1:] {
		role := "Assistant"
		if turn.Role == entity.RoleUser {
			role = "User"
		}
		lines = append(lines, role+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}

func (u *UseCase) stream(ctx context.Context, sess *entity.Session, message, prompt string, events chan<- entity.StreamEvent) {
	defer close(events)
	logger := ctxzap.Extract(ctx)

	stream, err := u.streamer.StreamChat(ctx, systemMessage, prompt)
	if err != nil {
		logger.Error("failed to open completion stream", zap.Error(err))
		u.emit(ctx, events, entity.StreamEvent{Type: entity.EventError, Content: err.Error()})
		return
	}
	defer stream.Close()

	var full strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error("completion stream failed", zap.Error(err))
			u.emit(ctx, events, entity.StreamEvent{Type: entity.EventError, Content: err.Error()})
			return
		}
		full.WriteString(fragment)
		if !u.emit(ctx, events, entity.StreamEvent{Type: entity.EventStream, Content: fragment}) {
			return
		}
	}

	answer := strings.TrimSpace(full.String())
	if !u.emit(ctx, events, entity.StreamEvent{Type: entity.EventFinal, Content: answer}) {
		return
	}
	u.sessions.Append(sess, message, answer)
}

func (u *UseCase) emit(ctx context.Context, events chan<- entity.StreamEvent, ev entity.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
