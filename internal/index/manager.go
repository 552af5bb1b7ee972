package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"syscall"

	"github.com/Zwang-23/medassist/internal/entity"
	pkgretry "github.com/Zwang-23/medassist/internal/pkg/retry"
	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

const (
	collectionName = "documents"

	// DefaultTopK is the number of neighbors a query returns when the
	// caller does not ask for a specific count.
	DefaultTopK = 5
)

// EmbeddingFunc produces a vector for a piece of text.
type EmbeddingFunc = chromem.EmbeddingFunc

// Manager owns the on-disk vector indexes. A single process-wide
// mutex serializes rebuilds and queries so a query can never observe
// a partially rebuilt index.
type Manager struct {
	mu       sync.Mutex
	embed    EmbeddingFunc
	retryCfg pkgretry.Config

	// removeFn is swapped in tests to simulate locked directories.
	removeFn func(path string) error
}

func NewManager(embed EmbeddingFunc, retryCfg pkgretry.Config) *Manager {
	return &Manager{
		embed:    embed,
		retryCfg: retryCfg,
		removeFn: os.RemoveAll,
	}
}

// Rebuild atomically replaces the index at indexPath with one built
// from chunks. Any existing index is fully removed first; deletion
// races with lingering file handles are retried within the configured
// budget, other I/O errors surface immediately.
func (m *Manager) Rebuild(ctx context.Context, chunks []entity.Chunk, indexPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := retry.Do(
		func() error { return m.removeFn(indexPath) },
		append(m.retryCfg.Options(),
			retry.Context(ctx),
			retry.RetryIf(isTransientFSErr),
			retry.OnRetry(func(n uint, err error) {
				ctxzap.Warn(ctx, "index directory still locked, retrying delete",
					zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)...,
	)
	if err != nil {
		return fmt.Errorf("remove stale index: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	db, err := chromem.NewPersistentDB(indexPath, false)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	coll, err := db.CreateCollection(collectionName, map[string]string{"hnsw:space": "cosine"}, m.embed)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		docs = append(docs, chromem.Document{
			ID: ch.Source + ":" + strconv.Itoa(ch.StartOffset),
			Metadata: map[string]string{
				"source": ch.Source,
				"start":  strconv.Itoa(ch.StartOffset),
			},
			Content: ch.Text,
		})
	}
	if err := coll.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}

	ctxzap.Info(ctx, "vector index rebuilt",
		zap.String("path", indexPath), zap.Int("chunks", len(docs)))
	return nil
}

// Query returns up to k chunks nearest to text under the embedding
// similarity metric. A missing index yields an empty result, never an
// error; embedding failures propagate.
func (m *Manager) Query(ctx context.Context, text, indexPath string, k int) ([]entity.Chunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := chromem.NewPersistentDB(indexPath, false)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	coll := db.GetCollection(collectionName, m.embed)
	if coll == nil {
		return nil, nil
	}
	if count := coll.Count(); count < k {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	results, err := coll.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	chunks := make([]entity.Chunk, 0, len(results))
	for _, r := range results {
		start, _ := strconv.Atoi(r.Metadata["start"])
		chunks = append(chunks, entity.Chunk{
			Text:        r.Content,
			StartOffset: start,
			Source:      r.Metadata["source"],
		})
	}
	return chunks, nil
}

func isTransientFSErr(err error) bool {
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPERM)
}
