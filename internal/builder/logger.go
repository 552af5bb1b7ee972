package builder

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Zwang-23/medassist/internal/index"
)

func setupLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// mockEmbedding is a deterministic local embedding used when mocks
// are enabled, so indexing and retrieval work without an API key.
func mockEmbedding() index.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		sum := sha256.Sum256([]byte(text))
		vec := make([]float32, len(sum))
		var norm float64
		for i, b := range sum {
			vec[i] = float32(b)
			norm += float64(vec[i]) * float64(vec[i])
		}
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
		return vec, nil
	}
}
