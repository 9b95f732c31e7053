// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	ProviderYahoo  = "yahoo"
	ProviderStatic = "static"
)

type Config struct {
	Port           string `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	StorageDriver  string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`

	RedisURL string `envconfig:"REDIS_URL"`

	JWTSecret    string        `envconfig:"JWT_SECRET"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	CookieSecure bool          `envconfig:"COOKIE_SECURE" default:"false"`
	CORSOrigins  []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	QuoteProvider     string        `envconfig:"QUOTE_PROVIDER" default:"yahoo"`
	QuoteBaseURL      string        `envconfig:"QUOTE_BASE_URL" default:"https://query1.finance.yahoo.com"`
	QuoteTimeout      time.Duration `envconfig:"QUOTE_TIMEOUT" default:"3s"`
	QuoteConcurrency  int           `envconfig:"QUOTE_CONCURRENCY" default:"8"`
	QuoteRateLimit    float64       `envconfig:"QUOTE_RATE_LIMIT" default:"5"`
	QuoteRateBurst    int           `envconfig:"QUOTE_RATE_BURST" default:"10"`
	QuoteCacheTTL     time.Duration `envconfig:"QUOTE_CACHE_TTL" default:"60s"`
	QuotePollInterval time.Duration `envconfig:"QUOTE_POLL_INTERVAL" default:"30s"`

	PositionCacheSize int64 `envconfig:"POSITION_CACHE_SIZE" default:"10000"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"portfolio.trades"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads a .env file when one exists, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	cfg.QuoteProvider = strings.ToLower(cfg.QuoteProvider)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with STORAGE_DRIVER=%s", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.QuoteProvider {
	case ProviderYahoo, ProviderStatic:
	default:
		return fmt.Errorf("unknown QUOTE_PROVIDER %q", c.QuoteProvider)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.QuoteConcurrency < 1 {
		return fmt.Errorf("QUOTE_CONCURRENCY must be at least 1")
	}
	return nil
}

func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
