package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/docstack/knowledge-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External service configurations
	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`
	ChatCfg      ChatConfig      `envPrefix:"CHAT_"`
	QdrantCfg    QdrantConfig    `envPrefix:"QDRANT_"`

	// Ingestion configuration
	ChunkingCfg   ChunkingConfig   `envPrefix:"CHUNK_"`
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`
	BlobRoot      string           `env:"BLOB_ROOT" envDefault:"./data/blobs"`

	// Conversation configuration
	ConversationTTL time.Duration `env:"CONVERSATION_TTL" envDefault:"168h"`
	HistoryLimit    int           `env:"HISTORY_LIMIT" envDefault:"10"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

// EmbeddingConfig configures the embedding provider gateway.
type EmbeddingConfig struct {
	BaseURL     string               `env:"BASE_URL,notEmpty"`
	APIKey      string               `env:"API_KEY"`
	Model       string               `env:"MODEL" envDefault:"text-embedding-3-small"`
	Dimension   int                  `env:"DIMENSION" envDefault:"1024"`
	Concurrency int64                `env:"CONCURRENCY" envDefault:"2"`
	PaceDelay   time.Duration        `env:"PACE_DELAY" envDefault:"500ms"`
	Retry       pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// ChatConfig configures the chat-completion provider.
type ChatConfig struct {
	BaseURL string `env:"BASE_URL,notEmpty"`
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL" envDefault:"gpt-4o-mini"`
}

// QdrantConfig configures the vector index service.
type QdrantConfig struct {
	URL               string        `env:"URL,notEmpty"`
	APIKey            string        `env:"API_KEY"`
	Collection        string        `env:"COLLECTION" envDefault:"documents"`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"15s"`
	RequestsPerSecond float64       `env:"REQUESTS_PER_SECOND" envDefault:"10"`
	ScoreThreshold    float64       `env:"SCORE_THRESHOLD" envDefault:"0.45"`
	MinHitTextLen     int           `env:"MIN_HIT_TEXT_LEN" envDefault:"50"`
}

// ChunkingConfig bounds chunk sizes in characters.
type ChunkingConfig struct {
	MaxSize int `env:"MAX_SIZE" envDefault:"1000"`
	MinSize int `env:"MIN_SIZE" envDefault:"50"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"10485760"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"`
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

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		return fmt.Errorf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns)
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.EmbeddingCfg.Dimension < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", cfg.EmbeddingCfg.Dimension)
	}
	if cfg.EmbeddingCfg.Concurrency < 1 {
		return fmt.Errorf("EMBEDDING_CONCURRENCY must be at least 1, got %d", cfg.EmbeddingCfg.Concurrency)
	}
	if cfg.ChunkingCfg.MaxSize <= cfg.ChunkingCfg.MinSize {
		return fmt.Errorf("CHUNK_MAX_SIZE(%d) must exceed CHUNK_MIN_SIZE(%d)",
			cfg.ChunkingCfg.MaxSize, cfg.ChunkingCfg.MinSize)
	}
	if cfg.HistoryLimit < 1 {
		return fmt.Errorf("HISTORY_LIMIT must be at least 1, got %d", cfg.HistoryLimit)
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
