package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrMissingJWTSecret    = errors.New("JWT_SECRET environment variable is required")
	ErrMissingGeminiAPIKey = errors.New("GEMINI_API_KEY is required when DEMO_MODE is false")
)

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Provider
	DemoMode        bool          `env:"DEMO_MODE" envDefault:"false"`
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	// Response cache. A non-empty RedisURL selects the shared Redis backend.
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"0"`
	RedisURL        string        `env:"REDIS_URL"`

	// Storage
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"chatbot.db"`

	// HTTP auth
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
	CORSOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
}

// Load reads the .env file when present and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional outside development

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ValidateProvider checks the credential needed for live mode. Demo mode never
// touches the network, so it needs nothing.
func (c *Config) ValidateProvider() error {
	if !c.DemoMode && c.GeminiAPIKey == "" {
		return ErrMissingGeminiAPIKey
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout)
	}
	return nil
}

// ValidateServer checks everything the HTTP server needs at startup.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	return c.ValidateProvider()
}
