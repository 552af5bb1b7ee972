package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Zwang-23/medassist/internal/config"
	"github.com/Zwang-23/medassist/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Connector wraps the OpenAI API: chat completions for keyword and
// query generation, streamed chat completions for answers, and
// Whisper transcription.
type Connector struct {
	client *openai.Client
	config config.OpenAIConfig
	logger *zap.Logger
}

func NewConnector(cfg config.OpenAIConfig, logger *zap.Logger) *Connector {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}

	return &Connector{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		logger: logger,
	}
}

// Complete runs a single-turn completion and returns the raw text.
func (c *Connector) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.CompletionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChat opens a streamed completion for the given system and
// user messages. The returned stream yields non-empty content
// fragments in emission order and io.EOF on natural exhaustion.
func (c *Connector) StreamChat(ctx context.Context, systemMsg, userMsg string) (entity.CompletionStream, error) {
	ctxzap.Info(ctx, "opening completion stream", zap.String("model", c.config.ChatModel))

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.config.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMsg},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open completion stream: %w", err)
	}
	return &ChatStream{stream: stream}, nil
}

// ChatStream adapts the SDK stream to plain text fragments.
type ChatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *ChatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *ChatStream) Close() error { return s.stream.Close() }

// Transcribe runs Whisper transcription on the audio file at path.
func (c *Connector) Transcribe(ctx context.Context, path string) (string, error) {
	ctxzap.Info(ctx, "transcribing audio", zap.String("path", path))

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return resp.Text, nil
}
