package builder

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/Zwang-23/medassist/internal/api"
	chatapi "github.com/Zwang-23/medassist/internal/api/chat"
	"github.com/Zwang-23/medassist/internal/config"
	"github.com/Zwang-23/medassist/internal/document"
	"github.com/Zwang-23/medassist/internal/index"
	"github.com/Zwang-23/medassist/internal/integration/ocr"
	"github.com/Zwang-23/medassist/internal/integration/openai"
	"github.com/Zwang-23/medassist/internal/integration/pubmed"
	"github.com/Zwang-23/medassist/internal/integration/scholar"
	"github.com/Zwang-23/medassist/internal/pkg/validator"
	"github.com/Zwang-23/medassist/internal/research"
	"github.com/Zwang-23/medassist/internal/session"
	chatuc "github.com/Zwang-23/medassist/internal/usecase/chat"
	"github.com/Zwang-23/medassist/internal/usecase/ingest"
)

// LLMConnector is everything the pipeline needs from the language
// model service.
type LLMConnector interface {
	research.TextGenerator
	chatuc.Streamer
	chatapi.Transcriber
}

func Build() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Session storage
	sessions, err := session.NewManager(cfg.SessionCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup session manager: %w", err)
	}
	if err := os.MkdirAll(cfg.SessionCfg.AudioDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	logger.Info("Session manager initialized",
		zap.String("root", cfg.SessionCfg.RootDir),
		zap.Duration("idle_ttl", cfg.SessionCfg.IdleTTL),
	)

	// Language model connector (with mock support)
	var llm LLMConnector
	var embed index.EmbeddingFunc
	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		llm = openai.NewMockConnector(logger)
		embed = mockEmbedding()
	} else {
		logger.Info("Using real connectors for external services")
		llm = openai.NewConnector(cfg.OpenAICfg, logger)
		embed = chromem.NewEmbeddingFuncOpenAI(
			cfg.OpenAICfg.APIKey,
			chromem.EmbeddingModelOpenAI(cfg.OpenAICfg.EmbeddingModel),
		)
	}

	// Document pipeline
	indexManager := index.NewManager(embed, cfg.IndexCfg.Retry)
	loader := document.NewFileLoader()
	chunker := document.NewChunker(cfg.ChunkCfg.Size, cfg.ChunkCfg.Overlap)

	var pageOCR document.OCR
	if cfg.OCRCfg.Enabled {
		pageOCR = ocr.NewClient(cfg.OCRCfg)
	}
	extractor := document.NewExtractor(pageOCR)
	logger.Info("Document pipeline initialized",
		zap.Int("chunk_size", cfg.ChunkCfg.Size),
		zap.Int("chunk_overlap", cfg.ChunkCfg.Overlap),
		zap.Bool("ocr_enabled", cfg.OCRCfg.Enabled),
	)

	// Bibliographic search
	scholarConn := scholar.NewConnector(cfg.ScholarCfg, logger)
	pubmedConn := pubmed.NewConnector(cfg.PubMedCfg, logger)
	engine := research.NewEngine(scholarConn, pubmedConn, cfg.SearchCfg.SourceTimeout)
	synthesizer := research.NewSynthesizer(llm)
	logger.Info("Bibliographic search initialized",
		zap.Bool("legacy_cascade", cfg.SearchCfg.LegacyCascade),
	)

	// Initialize validators
	fileValidator := validator.NewFileValidator(cfg.UploadCfg)

	// Initialize use cases
	ingestUC := ingest.NewUseCase(
		loader,
		chunker,
		indexManager,
		extractor,
		synthesizer,
		engine,
		cfg.SearchCfg.LegacyCascade,
	)
	chatUC := chatuc.NewUseCase(indexManager, llm, sessions, cfg.IndexCfg.TopK)
	logger.Info("Use cases initialized")

	// Setup API handlers and router
	chatHandler := chatapi.NewHandler(sessions, ingestUC, chatUC, llm, fileValidator, cfg.SessionCfg)
	router := api.SetupRouter(chatHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server. WriteTimeout must cover a full streamed
	// answer, which the router already caps at 60 seconds.
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		logger: logger,
	}, nil
}
