package research

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zwang-23/medassist/internal/entity"
)

type stubSource struct {
	name     string
	articles []entity.Article
	err      error

	queries []string
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(_ context.Context, query string, _ int) ([]entity.Article, error) {
	s.queries = append(s.queries, query)
	return s.articles, s.err
}

func TestSearchMergesAndDeduplicates(t *testing.T) {
	primary := &stubSource{name: "scholar", articles: []entity.Article{
		{Title: "Deep Learning for Sepsis Prediction"},
		{Title: "Asthma Inhaler Adherence"},
	}}
	secondary := &stubSource{name: "pubmed", articles: []entity.Article{
		{Title: "  deep learning for sepsis prediction  "},
		{Title: "Pediatric Asthma Outcomes"},
	}}
	e := NewEngine(primary, secondary, time.Second)

	got := e.Search(context.Background(), "asthma OR sepsis", "asthma, sepsis", "")
	if len(got) != 3 {
		t.Fatalf("expected 3 unique articles, got %d", len(got))
	}
	for _, a := range got {
		for _, b := range got {
			if a.Title != b.Title && a.Key() == b.Key() {
				t.Fatalf("duplicate keys survived: %q vs %q", a.Title, b.Title)
			}
		}
	}
}

func TestSearchExcludesUploadedDocument(t *testing.T) {
	primary := &stubSource{name: "scholar", articles: []entity.Article{
		{Title: "Deep Learning for Sepsis: an extended study"},
		{Title: "Unrelated Cardiology Paper"},
	}}
	e := NewEngine(primary, &stubSource{name: "pubmed"}, time.Second)

	got := e.Search(context.Background(), "sepsis", "sepsis", "Deep Learning for Sepsis")
	if len(got) != 1 {
		t.Fatalf("expected 1 article, got %d", len(got))
	}
	if got[0].Title != "Unrelated Cardiology Paper" {
		t.Fatalf("uploaded document not excluded: %q", got[0].Title)
	}
}

func TestSearchRanksByKeywordOverlap(t *testing.T) {
	primary := &stubSource{name: "scholar", articles: []entity.Article{
		{Title: "Completely Different Topic"},
		{Title: "Asthma and Inhaler Use in Children"},
		{Title: "Asthma Review"},
	}}
	e := NewEngine(primary, &stubSource{name: "pubmed"}, time.Second)

	got := e.Search(context.Background(), "q", "asthma, inhaler", "")
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	if got[0].Title != "Asthma and Inhaler Use in Children" {
		t.Fatalf("expected two-term match first, got %q", got[0].Title)
	}
	if got[1].Title != "Asthma Review" {
		t.Fatalf("expected one-term match second, got %q", got[1].Title)
	}
}

func TestSearchCapsAtFive(t *testing.T) {
	var many []entity.Article
	for _, title := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		many = append(many, entity.Article{Title: title})
	}
	e := NewEngine(&stubSource{name: "scholar", articles: many}, &stubSource{name: "pubmed"}, time.Second)

	got := e.Search(context.Background(), "q", "basis", "")
	if len(got) != 5 {
		t.Fatalf("expected 5 articles, got %d", len(got))
	}
}

func TestSearchSurvivesFailedSource(t *testing.T) {
	primary := &stubSource{name: "scholar", err: errors.New("timeout")}
	secondary := &stubSource{name: "pubmed", articles: []entity.Article{{Title: "Still Here"}}}
	e := NewEngine(primary, secondary, time.Second)

	got := e.Search(context.Background(), "q", "basis", "")
	if len(got) != 1 || got[0].Title != "Still Here" {
		t.Fatalf("expected surviving source's article, got %+v", got)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	primary := &stubSource{name: "scholar"}
	e := NewEngine(primary, &stubSource{name: "pubmed"}, time.Second)

	if got := e.Search(context.Background(), "  ", "basis", ""); got != nil {
		t.Fatalf("expected nil for empty query, got %+v", got)
	}
	if len(primary.queries) != 0 {
		t.Fatal("sources must not be queried for an empty query")
	}
}

func TestSearchCascadeEarlyExit(t *testing.T) {
	primary := &stubSource{name: "scholar", articles: []entity.Article{
		{Title: "A"}, {Title: "B"}, {Title: "C"}, {Title: "D"}, {Title: "E"},
	}}
	secondary := &stubSource{name: "pubmed", articles: []entity.Article{{Title: "F"}}}
	e := NewEngine(primary, secondary, time.Second)

	got := e.SearchCascade(context.Background(), []string{"asthma", "inhaler"}, "")
	if len(got) != 5 {
		t.Fatalf("expected 5 articles, got %d", len(got))
	}
	if len(primary.queries) != 1 {
		t.Fatalf("expected early exit after first pass, primary queried %d times", len(primary.queries))
	}
	if len(secondary.queries) != 0 {
		t.Fatal("secondary must not be queried once five articles accumulated")
	}
	if primary.queries[0] != "asthma inhaler" {
		t.Fatalf("expected AND query first, got %q", primary.queries[0])
	}
}

func TestSearchCascadeBroadensThenFallsBack(t *testing.T) {
	primary := &stubSource{name: "scholar", articles: []entity.Article{{Title: "Only One"}}}
	secondary := &stubSource{name: "pubmed", articles: []entity.Article{{Title: "From PubMed"}}}
	e := NewEngine(primary, secondary, time.Second)

	got := e.SearchCascade(context.Background(), []string{"asthma", "inhaler"}, "")
	if len(got) != 2 {
		t.Fatalf("expected 2 unique articles, got %d", len(got))
	}
	if len(primary.queries) != 2 {
		t.Fatalf("expected AND then OR against primary, got %v", primary.queries)
	}
	if primary.queries[1] != "asthma OR inhaler" {
		t.Fatalf("expected OR retry, got %q", primary.queries[1])
	}
	if len(secondary.queries) != 1 {
		t.Fatalf("expected one secondary query, got %d", len(secondary.queries))
	}
}

func TestRelevanceScoreJaccardFallback(t *testing.T) {
	score := relevanceScore("genomics, proteomics", "completely unrelated title")
	if score != 0 {
		t.Fatalf("expected zero score for disjoint words, got %f", score)
	}

	withOverlap := relevanceScore("rare term", "a title with term inside")
	if withOverlap <= 0 {
		t.Fatalf("expected positive score, got %f", withOverlap)
	}
}
