package research

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Zwang-23/medassist/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	maxResults        = 5
	perSourceLimit    = 10
	defaultSourceWait = 5 * time.Second
)

// Source is one external bibliographic search service.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]entity.Article, error)
}

// Engine queries two bibliographic sources, merges the results in
// source order, deduplicates by title identity, excludes the uploaded
// document itself and ranks by keyword overlap.
type Engine struct {
	primary    Source
	secondary  Source
	sourceWait time.Duration
}

func NewEngine(primary, secondary Source, sourceWait time.Duration) *Engine {
	if sourceWait <= 0 {
		sourceWait = defaultSourceWait
	}
	return &Engine{primary: primary, secondary: secondary, sourceWait: sourceWait}
}

// Search runs the ranked-merge mode: both sources with the same
// query, dedup, exclusion, scoring against the keyword basis, stable
// descending sort, top 5. A failed source contributes nothing.
func (e *Engine) Search(ctx context.Context, query, basis, uploadedTitle string) []entity.Article {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	var merged []entity.Article
	for _, src := range []Source{e.primary, e.secondary} {
		articles, err := e.fetch(ctx, src, query)
		if err != nil {
			ctxzap.Error(ctx, "bibliographic source failed",
				zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		merged = append(merged, articles...)
	}

	unique := dedupe(merged, uploadedTitle)
	for i := range unique {
		unique[i].Score = relevanceScore(basis, unique[i].Title)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})
	if len(unique) > maxResults {
		unique = unique[:maxResults]
	}
	return unique
}

// SearchCascade is the legacy mode kept from the first version of the
// upload flow: an AND query against the primary source, a broader OR
// retry, then the secondary source, stopping as soon as five unique
// articles have accumulated.
func (e *Engine) SearchCascade(ctx context.Context, keywords []string, uploadedTitle string) []entity.Article {
	if len(keywords) == 0 {
		return nil
	}

	uploadedKey := entity.Article{Title: uploadedTitle}.Key()
	seen := make(map[string]bool)
	var out []entity.Article
	collect := func(articles []entity.Article, source string) {
		for _, a := range articles {
			key := a.Key()
			if seen[key] || (uploadedKey != "" && strings.Contains(key, uploadedKey)) {
				continue
			}
			seen[key] = true
			out = append(out, a)
			ctxzap.Info(ctx, "article accepted",
				zap.String("source", source), zap.String("title", a.Title))
		}
	}

	passes := []struct {
		src   Source
		query string
		label string
	}{
		{e.primary, strings.Join(keywords, " "), "primary AND"},
		{e.primary, strings.Join(keywords, " OR "), "primary OR"},
		{e.secondary, strings.Join(keywords, " "), "secondary"},
	}
	for _, pass := range passes {
		articles, err := e.fetch(ctx, pass.src, pass.query)
		if err != nil {
			ctxzap.Error(ctx, "bibliographic source failed",
				zap.String("source", pass.src.Name()), zap.Error(err))
		} else {
			collect(articles, pass.label)
		}
		if len(out) >= maxResults {
			return out[:maxResults]
		}
	}
	return out
}

func (e *Engine) fetch(ctx context.Context, src Source, query string) ([]entity.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, e.sourceWait)
	defer cancel()
	return src.Search(ctx, query, perSourceLimit)
}

func dedupe(articles []entity.Article, uploadedTitle string) []entity.Article {
	uploadedKey := entity.Article{Title: uploadedTitle}.Key()
	seen := make(map[string]bool)
	var out []entity.Article
	for _, a := range articles {
		key := a.Key()
		if key == "" || seen[key] {
			continue
		}
		if uploadedKey != "" && strings.Contains(key, uploadedKey) {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// relevanceScore counts how many basis terms appear in the title; a
// zero count falls back to Jaccard word overlap.
func relevanceScore(basis, title string) float64 {
	titleLower := strings.ToLower(title)
	matches := 0
	for _, term := range SplitTerms(basis) {
		if strings.Contains(titleLower, strings.ToLower(term)) {
			matches++
		}
	}
	if matches > 0 {
		return float64(matches)
	}
	return jaccard(basis, title)
}

func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}
