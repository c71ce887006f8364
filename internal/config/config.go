package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends understood by the server.
const (
	StorageMemory   = "memory"
	StorageTTLCache = "ttlcache"
	StorageSQLite   = "sqlite"
)

// Config is the server configuration, read from the environment at startup.
type Config struct {
	Port string `env:"PORT" envDefault:"8008"`

	Storage       string        `env:"CACHE_STORAGE"        envDefault:"memory"`
	DBPath        string        `env:"CACHE_DB_PATH"        envDefault:"cache-countdown.db"`
	Capacity      uint64        `env:"CACHE_CAPACITY"       envDefault:"0"`
	DefaultTTL    time.Duration `env:"CACHE_DEFAULT_TTL"    envDefault:"30s"`
	TickInterval  time.Duration `env:"CACHE_TICK_INTERVAL"  envDefault:"1s"`
	InFlightDedup bool          `env:"CACHE_INFLIGHT_DEDUP" envDefault:"false"`

	// LogMode is "production" or "development".
	LogMode string `env:"LOG_MODE" envDefault:"production"`

	// OTELEndpoint enables tracing when set.
	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Auth AuthConfig
}

// AuthConfig holds admin token settings.
type AuthConfig struct {
	JWTSecret   string        `env:"JWT_SECRET"    envDefault:"development-insecure-secret-change-me"`
	JWTIssuer   string        `env:"JWT_ISSUER"    envDefault:"cache-countdown-api"`
	JWTAudience string        `env:"JWT_AUDIENCE"  envDefault:"cache-countdown-clients"`
	TokenTTL    time.Duration `env:"JWT_TOKEN_TTL" envDefault:"24h"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	// AdminPasswordHash is a bcrypt hash; empty accepts any credentials.
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env.Parse cannot.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageTTLCache, StorageSQLite:
	default:
		return fmt.Errorf("unknown CACHE_STORAGE %q", c.Storage)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("CACHE_TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("CACHE_DEFAULT_TTL must not be negative, got %s", c.DefaultTTL)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	return nil
}
