package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds runtime configuration shared by all chunkpipe services.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Chunking
	MaxTokens        int    `env:"MAX_TOKENS" envDefault:"3000" validate:"gt=0"`
	OverlapTokens    int    `env:"OVERLAP_TOKENS" envDefault:"200" validate:"gte=0,ltfield=MaxTokens"`
	// The default fence marker contains backticks, so this tag must be an
	// interpreted string literal.
	FenceMarker      string "env:\"FENCE_MARKER\" envDefault:\"```\" validate:\"required\""
	TokenEncoding    string `env:"TOKEN_ENCODING" envDefault:"cl100k_base" validate:"required"`
	SentenceMaxInput int    `env:"SENTENCE_MAX_INPUT" envDefault:"1000000" validate:"gt=0"`

	// Batch worker pool
	InputDir         string        `env:"INPUT_DIR"`
	Workers          int           `env:"WORKERS" envDefault:"0"` // 0 = number of CPUs
	CPUThreshold     float64       `env:"CPU_THRESHOLD" envDefault:"85" validate:"gt=0,lte=100"`
	ThrottleCooldown time.Duration `env:"THROTTLE_COOLDOWN" envDefault:"5s"`

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres"` // "postgres" or "file"
	DBURL         string `env:"DB_URL"`
	ChunkDir      string `env:"CHUNK_DIR" envDefault:"data/chunked"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"` // "nats" (required for inter-service communication)
	QueueURL      string `env:"QUEUE_URL"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "redis" or "none"
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
}

// Load reads configuration from environment variables with defaults and
// validates the chunking parameters (overlap must stay below the budget).
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
