// Package config loads application settings from environment variables.
// Every field carries an env tag, an optional default and an optional
// required flag; Load fills the struct and Validate fails fast on values
// the server cannot run with.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Import   ImportConfig
	Export   ExportConfig
	Jobs     JobsConfig
	Database DatabaseConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds the drain of running jobs on exit.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is applied by middleware to every request.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// CatalogConfig selects the pattern catalog.
type CatalogConfig struct {
	// Path to a JSON or YAML catalog. Empty uses the built-in rules.
	Path string `env:"CATALOG_PATH" envAlt:"REGEX_CONFIG"`
}

// ImportConfig holds upload and decoding settings.
type ImportConfig struct {
	// MaxFileSize is the upload limit in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	DefaultStartCell string `env:"IMPORT_START_CELL" default:"A1"`

	// CSVCharset is the encoding of CSV uploads, e.g. windows-1252.
	// Empty means UTF-8.
	CSVCharset string `env:"IMPORT_CSV_CHARSET"`

	// CSVComma is the CSV field separator.
	CSVComma string `env:"IMPORT_CSV_COMMA" default:","`

	// Timezone for date strings that carry no zone.
	Timezone string `env:"IMPORT_TIMEZONE" default:"UTC"`
}

// ExportConfig holds workbook styling and output settings.
type ExportConfig struct {
	// BasePath is where workbooks are persisted before base64 encoding.
	BasePath string `env:"EXPORT_BASE_PATH" default:"."`

	FontName  string  `env:"EXPORT_FONT_NAME" default:"Verdana"`
	FontSize  float64 `env:"EXPORT_FONT_SIZE" default:"8"`
	TitleSpan string  `env:"EXPORT_TITLE_SPAN" default:"Z"`
	Creator   string  `env:"EXPORT_CREATOR" default:"Sistema"`

	// Timezone for date cells. Empty uses America/Mexico_City.
	Timezone string `env:"EXPORT_TIMEZONE"`
}

// JobsConfig bounds concurrent imports and exports.
type JobsConfig struct {
	MaxConcurrent int           `env:"JOBS_MAX_CONCURRENT" default:"5"`
	MaxWaitTime   time.Duration `env:"JOBS_MAX_WAIT_TIME" default:"30s"`
	Timeout       time.Duration `env:"JOBS_TIMEOUT" default:"5m"`

	// HistorySize is the capacity of the in-memory history.
	HistorySize int `env:"JOBS_HISTORY_SIZE" default:"500"`

	// Jobs older than HistoryRetention are pruned every PruneInterval.
	// A zero retention keeps everything.
	HistoryRetention time.Duration `env:"JOBS_HISTORY_RETENTION" default:"720h"`
	PruneInterval    time.Duration `env:"JOBS_PRUNE_INTERVAL" default:"24h"`
}

// DatabaseConfig holds the optional history database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty keeps history in memory.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns int `env:"DB_MAX_CONNS" default:"4"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit for read endpoints (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// JobLimit is the per-minute limit for import and export endpoints.
	JobLimit int `env:"RATE_LIMIT_JOBS" default:"20"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// APIKeys accepted in the X-API-Key header, comma-separated.
	APIKeys []string `env:"API_KEYS"`

	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs.
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

// Comma returns the CSV separator as a rune.
func (c *ImportConfig) Comma() rune {
	r := []rune(c.CSVComma)
	if len(r) != 1 {
		return ','
	}
	return r[0]
}

// ImportLocation returns the zone for import dates.
func (c *Config) ImportLocation() (*time.Location, error) {
	return time.LoadLocation(c.Import.Timezone)
}
