package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Drip       DripConfig       `yaml:"drip"`
	Connection ConnectionConfig `yaml:"connection"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Notes      NotesConfig      `yaml:"notes"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" {
		return "0.0.0.0"
	}
	return c.Host
}

// DripConfig holds Drip API configuration. APIToken and AccountID seed the
// settings store on first boot; after that the stored settings win.
type DripConfig struct {
	BaseURL            string `yaml:"base_url"`
	APIToken           string `yaml:"api_token"`
	AccountID          string `yaml:"account_id"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	ValidationPath     string `yaml:"validation_path"` // cheap authenticated read used to verify credentials
	UserAgent          string `yaml:"user_agent"`
	CustomFieldRetries int    `yaml:"custom_field_retries"`
	CatalogTTLSeconds  int    `yaml:"catalog_ttl_seconds"`
	CatalogRefreshSecs int    `yaml:"catalog_refresh_seconds"` // 0 disables the background refresh
}

// Timeout returns the configured timeout as a duration
func (c DripConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CatalogTTL returns how long custom field identifiers stay cached
func (c DripConfig) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLSeconds) * time.Second
}

// CatalogRefresh returns the background refresh interval
func (c DripConfig) CatalogRefresh() time.Duration {
	return time.Duration(c.CatalogRefreshSecs) * time.Second
}

// ConnectionConfig controls how long credential checks are cached.
type ConnectionConfig struct {
	Cache             string `yaml:"cache"` // "memory" or "redis"
	SuccessTTLSeconds int    `yaml:"success_ttl_seconds"`
	FailureTTLSeconds int    `yaml:"failure_ttl_seconds"`
}

// SuccessTTL returns how long a passing check stays cached
func (c ConnectionConfig) SuccessTTL() time.Duration {
	return time.Duration(c.SuccessTTLSeconds) * time.Second
}

// FailureTTL returns how long a failing check stays cached
func (c ConnectionConfig) FailureTTL() time.Duration {
	return time.Duration(c.FailureTTLSeconds) * time.Second
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig holds Redis settings for the shared connection-status cache
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis address is configured
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact returns the PII redaction flag, defaulting to on
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// NotesConfig holds Liquid templates for entry notes and feed errors
type NotesConfig struct {
	SuccessTemplate     string `yaml:"success_template"`
	SuccessTemplateNoID string `yaml:"success_template_no_id"`
	ErrorTemplate       string `yaml:"error_template"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Drip.BaseURL == "" {
		cfg.Drip.BaseURL = "https://api.getdrip.com/v2"
	}
	if cfg.Drip.TimeoutSeconds == 0 {
		cfg.Drip.TimeoutSeconds = 15
	}
	if cfg.Drip.ValidationPath == "" {
		cfg.Drip.ValidationPath = "subscribers?limit=1"
	}
	if cfg.Drip.UserAgent == "" {
		cfg.Drip.UserAgent = "drip-forwarder/1.0.0"
	}
	if cfg.Drip.CustomFieldRetries == 0 {
		cfg.Drip.CustomFieldRetries = 2
	}
	if cfg.Drip.CatalogTTLSeconds == 0 {
		cfg.Drip.CatalogTTLSeconds = 600
	}
	if cfg.Connection.Cache == "" {
		cfg.Connection.Cache = "memory"
	}
	if cfg.Connection.SuccessTTLSeconds == 0 {
		cfg.Connection.SuccessTTLSeconds = 3600
	}
	if cfg.Connection.FailureTTLSeconds == 0 {
		cfg.Connection.FailureTTLSeconds = 300
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Notes.SuccessTemplate == "" {
		cfg.Notes.SuccessTemplate = "Subscriber created in Drip. ID: {{ subscriber_id }}"
	}
	if cfg.Notes.SuccessTemplateNoID == "" {
		cfg.Notes.SuccessTemplateNoID = "Subscriber created in Drip."
	}
	if cfg.Notes.ErrorTemplate == "" {
		cfg.Notes.ErrorTemplate = "Error subscribing to Drip: {{ message }}"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DRIP_API_TOKEN"); v != "" {
		cfg.Drip.APIToken = v
	}
	if v := os.Getenv("DRIP_ACCOUNT_ID"); v != "" {
		cfg.Drip.AccountID = v
	}
	if v := os.Getenv("DRIP_BASE_URL"); v != "" {
		cfg.Drip.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Connection.Cache = "redis"
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	return cfg, nil
}
