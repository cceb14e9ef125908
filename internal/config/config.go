// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Matching  MatchingConfig
	Email     EmailConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Retention RetentionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 120s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"120s"`
}

// DatabaseConfig holds run history database settings. The URL is
// optional; without it run history persistence is disabled.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// MatchingConfig holds registry matching settings.
type MatchingConfig struct {
	// RegistryURL is the base URL of the registry matching API (required)
	RegistryURL string `env:"REGISTRY_URL" required:"true"`

	// RegistryAPIKey authenticates requests to the registry
	RegistryAPIKey string `env:"REGISTRY_API_KEY"`

	// BatchSize is records matched concurrently per batch (default: 10)
	BatchSize int `env:"MATCH_BATCH_SIZE" default:"10"`

	// BatchPause is the fixed pause between batches (default: 100ms)
	BatchPause time.Duration `env:"MATCH_BATCH_PAUSE" default:"100ms"`

	// RequestTimeout bounds a single registry lookup (default: 15s)
	RequestTimeout time.Duration `env:"MATCH_REQUEST_TIMEOUT" default:"15s"`

	// MaxConcurrent is the maximum number of parallel matching runs (default: 3)
	MaxConcurrent int `env:"MATCH_MAX_CONCURRENT" default:"3"`

	// MaxWaitTime is how long to wait for a run slot (default: 10s)
	MaxWaitTime time.Duration `env:"MATCH_MAX_WAIT_TIME" default:"10s"`

	// IdentifierFormat selects the system number convention: standard or legacy (default: standard)
	IdentifierFormat string `env:"IDENTIFIER_FORMAT" default:"standard"`
}

// EmailConfig holds SMTP report delivery settings. Host is optional;
// without it the email endpoint is disabled.
type EmailConfig struct {
	// Host is the SMTP relay hostname
	Host string `env:"SMTP_HOST"`

	// Port is the SMTP relay port (default: 587)
	Port int `env:"SMTP_PORT" default:"587"`

	// Username authenticates to the relay
	Username string `env:"SMTP_USERNAME"`

	// Password authenticates to the relay
	Password string `env:"SMTP_PASSWORD"`

	// From is the sender address (default: the username)
	From string `env:"SMTP_FROM"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// APIKeys is a comma-separated list of accepted client API keys
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey rejects requests without a valid key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// MaxUploadSize is the maximum request body size in bytes (default: 50MB)
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" default:"52428800"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// RetentionConfig holds run history cleanup settings.
type RetentionConfig struct {
	// Days is how long to keep run summaries (default: 180)
	Days int `env:"HISTORY_RETENTION_DAYS" default:"180"`

	// CheckInterval is how often to run the cleanup job (default: 24h)
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
