package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zwang-23/medassist/internal/document"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	keywordPrompt = "Extract 4 to 6 key medical research terms (e.g., diseases, " +
		"molecules, concepts, materials, therapy) from this text (title and " +
		"abstract combined): %s. Return them as a comma-separated list."

	queryPrompt = "Combine the following medical research keywords into a single " +
		"optimized literature search query string. Keywords: %s. " +
		"Return only the query, nothing else."

	fallbackQueryTokens = 5
)

// TextGenerator is an external completion capability with no
// availability guarantee. Callers own a local fallback for every use.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Synthesizer turns extracted document metadata into a keyword basis
// and a search-engine query.
type Synthesizer struct {
	gen TextGenerator
}

func NewSynthesizer(gen TextGenerator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// KeywordBasis produces the comma-separated term list driving
// bibliographic search. An explicit keyword line from the document
// wins outright; otherwise the generator distills terms from title and
// abstract. Generator failure yields an empty basis, which callers
// must treat as "no search possible".
func (s *Synthesizer) KeywordBasis(ctx context.Context, md document.Metadata) string {
	if kw := strings.TrimSpace(md.Keywords); kw != "" {
		ctxzap.Info(ctx, "using explicit document keywords", zap.String("keywords", kw))
		return kw
	}

	combined := strings.TrimSpace(md.Title)
	if md.Abstract != "" {
		combined = strings.TrimSpace(md.Title + "\n" + md.Abstract)
	}
	if combined == "" {
		return ""
	}

	out, err := s.gen.Complete(ctx, fmt.Sprintf(keywordPrompt, combined))
	if err != nil {
		ctxzap.Error(ctx, "keyword extraction failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(out)
}

// BuildQuery turns a keyword basis into one natural-language search
// query. A generated query without " OR " is overridden by an OR-join
// of the basis terms when there are several; generator failure falls
// back to the first five tokens of the basis.
func (s *Synthesizer) BuildQuery(ctx context.Context, basis string) string {
	basis = strings.TrimSpace(basis)
	if basis == "" {
		return ""
	}

	terms := SplitTerms(basis)

	out, err := s.gen.Complete(ctx, fmt.Sprintf(queryPrompt, basis))
	out = strings.TrimSpace(out)
	if err != nil || out == "" {
		if err != nil {
			ctxzap.Error(ctx, "query generation failed", zap.Error(err))
		}
		return fallbackQuery(basis)
	}

	if !strings.Contains(out, " OR ") && len(terms) > 1 {
		return strings.Join(terms, " OR ")
	}
	return out
}

// SplitTerms breaks a keyword basis into its comma-separated terms.
func SplitTerms(basis string) []string {
	var terms []string
	for _, t := range strings.Split(basis, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func fallbackQuery(basis string) string {
	tokens := strings.Fields(strings.ReplaceAll(basis, ",", " "))
	if len(tokens) > fallbackQueryTokens {
		tokens = tokens[:fallbackQueryTokens]
	}
	return strings.Join(tokens, " ")
}
