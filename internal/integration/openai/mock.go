package openai

import (
	"context"
	"io"
	"strings"

	"github.com/Zwang-23/medassist/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector stands in for the OpenAI API during local development
// and integration testing.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{logger: logger}
}

func (m *MockConnector) Complete(ctx context.Context, prompt string) (string, error) {
	ctxzap.Info(ctx, "[MOCK] completion requested", zap.Int("prompt_length", len(prompt)))

	if strings.Contains(prompt, "comma-separated list") {
		return "sepsis, biomarker, intensive care, machine learning", nil
	}
	return "sepsis OR biomarker OR intensive care", nil
}

func (m *MockConnector) StreamChat(ctx context.Context, systemMsg, userMsg string) (entity.CompletionStream, error) {
	ctxzap.Info(ctx, "[MOCK] completion stream opened", zap.Int("prompt_length", len(userMsg)))

	return &mockStream{fragments: []string{
		"This is a mocked answer ",
		"produced without calling the completion service. ",
		"Set ENABLE_MOCKS=false to talk to the real API.",
	}}, nil
}

func (m *MockConnector) Transcribe(ctx context.Context, path string) (string, error) {
	ctxzap.Info(ctx, "[MOCK] transcription requested", zap.String("path", path))
	return "mock transcription", nil
}

type mockStream struct {
	fragments []string
	pos       int
}

func (s *mockStream) Recv() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	fragment := s.fragments[s.pos]
	s.pos++
	return fragment, nil
}

func (s *mockStream) Close() error { return nil }
