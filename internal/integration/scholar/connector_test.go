package scholar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Zwang-23/medassist/internal/config"
	"go.uber.org/zap"
)

func testConfig(serverURL string) config.SearchServiceConfig {
	return config.SearchServiceConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			Url:            serverURL,
			RequestTimeout: 5 * time.Second,
		},
		SearchEndpoint: "/graph/v1/paper/search",
	}
}

func TestSearchMapsPapers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graph/v1/paper/search" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "asthma OR inhaler" {
			t.Fatalf("unexpected query param: %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Fatalf("unexpected limit: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"paperId": "abc123",
					"title":   "Inhaler Adherence",
					"url":     "https://www.semanticscholar.org/paper/abc123",
					"authors": []map[string]string{{"name": "J. Doe"}, {"name": "A. Smith"}},
				},
				{
					"paperId": "def456",
					"title":   "No URL Paper",
					"authors": []map[string]string{},
				},
				{
					"paperId": "ghi789",
					"title":   "",
				},
			},
		})
	}))
	defer server.Close()

	c := NewConnector(testConfig(server.URL), zap.NewNop())
	articles, err := c.Search(context.Background(), "asthma OR inhaler", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("expected 2 articles (untitled hit dropped), got %d", len(articles))
	}
	if articles[0].Title != "Inhaler Adherence" || articles[0].Authors != "J. Doe, A. Smith" {
		t.Fatalf("unexpected first article: %+v", articles[0])
	}
	if articles[1].Link != "https://www.semanticscholar.org/paper/def456" {
		t.Fatalf("expected fallback link, got %q", articles[1].Link)
	}
}

func TestSearchPropagatesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewConnector(testConfig(server.URL), zap.NewNop())
	if _, err := c.Search(context.Background(), "anything", 10); err == nil {
		t.Fatal("expected error for 429 response")
	}
}
