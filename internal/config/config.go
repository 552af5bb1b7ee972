package config

import (
	"flag"
	"fmt"
	"time"

	pkgRetry "github.com/Zwang-23/medassist/internal/pkg/retry"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Session lifecycle
	SessionCfg SessionConfig `envPrefix:"SESSION_"`

	// External service configurations
	OpenAICfg  OpenAIConfig        `envPrefix:"OPENAI_"`
	ScholarCfg SearchServiceConfig `envPrefix:"SEMANTIC_SCHOLAR_"`
	PubMedCfg  SearchServiceConfig `envPrefix:"PUBMED_"`

	// Pipeline tuning
	ChunkCfg  ChunkConfig  `envPrefix:"CHUNK_"`
	IndexCfg  IndexConfig  `envPrefix:"INDEX_"`
	SearchCfg SearchConfig `envPrefix:"SEARCH_"`
	UploadCfg UploadConfig `envPrefix:"UPLOAD_"`
	OCRCfg    OCRConfig    `envPrefix:"OCR_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

// SessionConfig controls where session state lives and when idle
// sessions are reaped.
type SessionConfig struct {
	RootDir       string        `env:"ROOT_DIR" envDefault:"user_sessions"`
	AudioDir      string        `env:"AUDIO_DIR" envDefault:"audio_files"`
	IdleTTL       time.Duration `env:"IDLE_TTL" envDefault:"5m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"20m"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"true"`
}

// OpenAIConfig configures the completion, streaming, embedding and
// transcription client.
type OpenAIConfig struct {
	APIKey          string        `env:"API_KEY"`
	BaseURL         string        `env:"BASE_URL"`
	CompletionModel string        `env:"COMPLETION_MODEL" envDefault:"gpt-3.5-turbo"`
	ChatModel       string        `env:"CHAT_MODEL" envDefault:"gpt-4"`
	EmbeddingModel  string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	RequestTimeout  time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

// SearchServiceConfig configures one bibliographic search service.
type SearchServiceConfig struct {
	HTTPClientConfig
	SearchEndpoint string `env:"SEARCH_ENDPOINT"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"5s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"5s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"5s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// ChunkConfig sets the chunking geometry for indexing.
type ChunkConfig struct {
	Size    int `env:"SIZE" envDefault:"3000"`
	Overlap int `env:"OVERLAP" envDefault:"500"`
}

// IndexConfig tunes the vector index manager.
type IndexConfig struct {
	TopK  int             `env:"TOP_K" envDefault:"5"`
	Retry pkgRetry.Config `envPrefix:"RETRY_"`
}

// SearchConfig tunes the bibliographic search engine.
type SearchConfig struct {
	SourceTimeout time.Duration `env:"SOURCE_TIMEOUT" envDefault:"5s"`
	LegacyCascade bool          `env:"LEGACY_CASCADE" envDefault:"false"`
}

// UploadConfig holds file upload limits
type UploadConfig struct {
	MaxFileSize      int64 `env:"MAX_FILE_SIZE" envDefault:"52428800"`       // 50 MiB
	MaxAudioFileSize int64 `env:"MAX_AUDIO_FILE_SIZE" envDefault:"26214400"` // 25 MiB
}

// OCRConfig controls the OCR fallback of the metadata extractor.
type OCRConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
	Language string `env:"LANGUAGE" envDefault:"eng"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	applyServiceDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyServiceDefaults fills in the public bibliographic API locations
// when no override is configured.
func applyServiceDefaults(cfg *Config) {
	if cfg.ScholarCfg.Url == "" {
		cfg.ScholarCfg.Url = "https://api.semanticscholar.org"
	}
	if cfg.ScholarCfg.SearchEndpoint == "" {
		cfg.ScholarCfg.SearchEndpoint = "/graph/v1/paper/search"
	}
	if cfg.PubMedCfg.Url == "" {
		cfg.PubMedCfg.Url = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	}
	if cfg.PubMedCfg.SearchEndpoint == "" {
		cfg.PubMedCfg.SearchEndpoint = "/esearch.fcgi"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.ChunkCfg.Size <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkCfg.Size)
	}
	if cfg.ChunkCfg.Overlap < 0 || cfg.ChunkCfg.Overlap >= cfg.ChunkCfg.Size {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", cfg.ChunkCfg.Overlap)
	}
	if cfg.IndexCfg.TopK < 1 {
		return fmt.Errorf("INDEX_TOP_K must be at least 1, got %d", cfg.IndexCfg.TopK)
	}
	if cfg.SessionCfg.IdleTTL <= 0 || cfg.SessionCfg.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL and SESSION_SWEEP_INTERVAL must be positive")
	}
	if !cfg.EnableMocks && cfg.OpenAICfg.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY must be set unless ENABLE_MOCKS is true")
	}
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
