// Package config provides centralized configuration management for the
// server and the import command. Settings come from environment variables
// with defaults, and are validated on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
// The URL is only checked by commands that talk to Postgres; see RequireDatabase.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds settings for the CSV import command.
type ImportConfig struct {
	// DataDir holds the source CSV files (default: data)
	DataDir string `env:"IMPORT_DATA_DIR" default:"data"`

	// OutputDir receives the generated data files (default: src/data)
	OutputDir string `env:"IMPORT_OUTPUT_DIR" default:"src/data"`

	// Manifest is the optional YAML job manifest (default: lozio.yaml)
	Manifest string `env:"IMPORT_MANIFEST" default:"lozio.yaml"`

	// StrictQuotes fails an import on an unterminated quoted field
	// instead of absorbing the rest of the file (default: false)
	StrictQuotes bool `env:"IMPORT_STRICT_QUOTES" default:"false"`

	// Encoding of the source files: utf-8, windows-1252, iso-8859-1, iso-8859-15
	Encoding string `env:"IMPORT_ENCODING" default:"utf-8"`

	// LedgerPath is the SQLite file recording import runs (default: .lozio/ledger.db)
	LedgerPath string `env:"IMPORT_LEDGER_PATH" default:".lozio/ledger.db"`

	// MaxFileSize is the maximum accepted source file size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	// Concurrency bounds how many entities are imported at once (default: 4)
	Concurrency int `env:"IMPORT_CONCURRENCY" default:"4"`

	// SyncTimeout bounds a single database sync (default: 5m)
	SyncTimeout time.Duration `env:"IMPORT_SYNC_TIMEOUT" default:"5m"`

	// WatchDebounce is the quiet period before a changed file is re-imported (default: 500ms)
	WatchDebounce time.Duration `env:"IMPORT_WATCH_DEBOUNCE" default:"500ms"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ReviewLimit is review submissions per minute per IP (default: 5)
	ReviewLimit int `env:"RATE_LIMIT_REVIEWS" default:"5"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// APIKeys is a comma-separated list of keys accepted on admin routes
	APIKeys []string `env:"API_KEYS" envAlt:"ADMIN_API_KEYS"`

	// RequireAPIKey protects admin routes (default: true)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"true"`

	// AllowedOrigins is a comma-separated list of CORS origins; "*" allows any
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
