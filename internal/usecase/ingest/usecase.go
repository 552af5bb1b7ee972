package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/Zwang-23/medassist/internal/document"
	"github.com/Zwang-23/medassist/internal/entity"
	"github.com/Zwang-23/medassist/internal/research"
)

// UseCase runs the full upload pipeline: load and chunk the saved
// file, rebuild the session index, extract bibliographic metadata and
// discover related articles. Indexing failures abort the upload;
// discovery failures degrade to an empty article list.
type UseCase struct {
	loader        Loader
	chunker       *document.Chunker
	indexer       Indexer
	extractor     MetadataExtractor
	synthesizer   Synthesizer
	engine        SearchEngine
	legacyCascade bool
}

func NewUseCase(
	loader Loader,
	chunker *document.Chunker,
	indexer Indexer,
	extractor MetadataExtractor,
	synthesizer Synthesizer,
	engine SearchEngine,
	legacyCascade bool,
) *UseCase {
	return &UseCase{
		loader:        loader,
		chunker:       chunker,
		indexer:       indexer,
		extractor:     extractor,
		synthesizer:   synthesizer,
		engine:        engine,
		legacyCascade: legacyCascade,
	}
}

func (u *UseCase) Ingest(ctx context.Context, sess *entity.Session, savedFile string) (entity.IngestResult, error) {
	logger := ctxzap.Extract(ctx)

	docs, err := u.loader.Load(sess.DataPath)
	if err != nil {
		return entity.IngestResult{}, fmt.Errorf("load documents: %w", err)
	}

	chunks := u.chunker.Split(docs)
	if err := u.indexer.Rebuild(ctx, chunks, sess.IndexPath); err != nil {
		return entity.IngestResult{}, fmt.Errorf("rebuild index: %w", err)
	}
	logger.Info("document indexed",
		zap.String("session_id", sess.ID),
		zap.Int("chunks", len(chunks)))

	md, err := u.extractor.Extract(ctx, savedFile)
	if err != nil {
		logger.Warn("metadata extraction failed",
			zap.String("file", filepath.Base(savedFile)), zap.Error(err))
		md = document.Metadata{}
	}

	result := entity.IngestResult{Title: md.Title}

	basis := u.synthesizer.KeywordBasis(ctx, md)
	if basis == "" {
		logger.Info("no keyword basis, skipping article discovery",
			zap.String("session_id", sess.ID))
		return result, nil
	}
	result.Keywords = research.SplitTerms(basis)

	articles := u.discover(ctx, basis, md.Title)
	logger.Info("article discovery finished",
		zap.String("session_id", sess.ID),
		zap.Int("articles", len(articles)))
	result.SimilarArticles = articles
	return result, nil
}

func (u *UseCase) discover(ctx context.Context, basis, uploadedTitle string) []entity.Article {
	if u.legacyCascade {
		return u.engine.SearchCascade(ctx, research.SplitTerms(basis), uploadedTitle)
	}
	query := u.synthesizer.BuildQuery(ctx, basis)
	return u.engine.Search(ctx, query, basis, uploadedTitle)
}
