package ingest

import (
	"context"

	"github.com/Zwang-23/medassist/internal/document"
	"github.com/Zwang-23/medassist/internal/entity"
)

type Loader interface {
	Load(dir string) ([]entity.Document, error)
}

type Indexer interface {
	Rebuild(ctx context.Context, chunks []entity.Chunk, indexPath string) error
}

type MetadataExtractor interface {
	Extract(ctx context.Context, path string) (document.Metadata, error)
}

type Synthesizer interface {
	KeywordBasis(ctx context.Context, md document.Metadata) string
	BuildQuery(ctx context.Context, basis string) string
}

type SearchEngine interface {
	Search(ctx context.Context, query, basis, uploadedTitle string) []entity.Article
	SearchCascade(ctx context.Context, keywords []string, uploadedTitle string) []entity.Article
}
