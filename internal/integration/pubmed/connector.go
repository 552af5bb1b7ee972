package pubmed

import (
	"context"
	"encoding/json"
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

const summaryEndpoint = "/esummary.fcgi"

// Connector queries the PubMed E-utilities API: an esearch pass for
// PMIDs sorted by relevance, then an esummary pass for their details.
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

func (c *Connector) Name() string { return "pubmed" }

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type summary struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (c *Connector) Search(ctx context.Context, query string, limit int) ([]entity.Article, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmode", "json")
	params.Set("retmax", fmt.Sprintf("%d", limit))
	params.Set("sort", "relevance")
	endpoint := c.config.SearchEndpoint + "?" + params.Encode()

	ctxzap.Info(ctx, "searching PubMed", zap.String("query", query))

	var searchResp esearchResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, endpoint, nil, &searchResp); err != nil {
		return nil, fmt.Errorf("pubmed esearch: %w", err)
	}

	pmids := searchResp.ESearchResult.IDList
	if len(pmids) == 0 {
		return nil, nil
	}

	detailParams := url.Values{}
	detailParams.Set("db", "pubmed")
	detailParams.Set("id", strings.Join(pmids, ","))
	detailParams.Set("retmode", "json")
	detailEndpoint := summaryEndpoint + "?" + detailParams.Encode()

	var detailResp esummaryResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, detailEndpoint, nil, &detailResp); err != nil {
		return nil, fmt.Errorf("pubmed esummary: %w", err)
	}

	articles := make([]entity.Article, 0, len(pmids))
	for _, pmid := range pmids {
		raw, ok := detailResp.Result[pmid]
		if !ok {
			continue
		}
		var s summary
		if err := json.Unmarshal(raw, &s); err != nil || s.Title == "" {
			continue
		}
		authors := "Unknown"
		if len(s.Authors) > 0 {
			names := make([]string, 0, len(s.Authors))
			for _, a := range s.Authors {
				names = append(names, a.Name)
			}
			authors = strings.Join(names, ", ")
		}
		articles = append(articles, entity.Article{
			Title:   s.Title,
			Authors: authors,
			Link:    fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid),
		})
	}

	ctxzap.Info(ctx, "PubMed search finished", zap.Int("hits", len(articles)))
	return articles, nil
}
