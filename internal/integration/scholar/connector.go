package scholar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Zwang-23/medassist/internal/config"
	"github.com/Zwang-23/medassist/internal/entity"
	"github.com/Zwang-23/medassist/internal/integration/common"
	pkghttp "github.com/Zwang-23/medassist/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Connector queries the Semantic Scholar graph API.
type Connector struct {
	config    config.SearchServiceConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.SearchServiceConfig, logger *zap.Logger) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

func (c *Connector) Name() string { return "semantic_scholar" }

type paper struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

type searchResponse struct {
	Data []paper `json:"data"`
}

// Search runs a paper search and maps the hits to article candidates.
func (c *Connector) Search(ctx context.Context, query string, limit int) ([]entity.Article, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("fields", "title,authors,url")
	endpoint := c.config.SearchEndpoint + "?" + params.Encode()

	ctxzap.Info(ctx, "searching Semantic Scholar", zap.String("query", query))

	var resp searchResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("semantic scholar search: %w", err)
	}

	articles := make([]entity.Article, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p.Title == "" {
			continue
		}
		link := p.URL
		if link == "" {
			link = "https://www.semanticscholar.org/paper/" + p.PaperID
		}
		names := make([]string, 0, len(p.Authors))
		for _, a := range p.Authors {
			names = append(names, a.Name)
		}
		articles = append(articles, entity.Article{
			Title:   p.Title,
			Authors: strings.Join(names, ", "),
			Link:    link,
		})
	}

	ctxzap.Info(ctx, "Semantic Scholar search finished", zap.Int("hits", len(articles)))
	return articles, nil
}
