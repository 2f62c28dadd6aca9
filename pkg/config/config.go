package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/retry"
)

// Supported annotation store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for annuaire-engine.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Database  DatabaseConfig  `yaml:"database"`
	SearchAPI SearchAPIConfig `yaml:"search_api"`
	Lookup    LookupConfig    `yaml:"lookup"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
}

// DatabaseConfig selects and configures the annotation store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`

	// PostgreSQL
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"annuaire"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"annuaire"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`

	// SQLite
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"annuaire.db"`
}

// SearchAPIConfig points at the public company registry. When ProxyURL is
// set, searches go through a search-companies proxy instead of BaseURL.
type SearchAPIConfig struct {
	BaseURL   string        `yaml:"base_url" env:"SEARCH_API_BASE_URL" env-default:"https://recherche-entreprises.api.gouv.fr"`
	ProxyURL  string        `yaml:"proxy_url" env:"SEARCH_API_PROXY_URL" env-default:""`
	Timeout   time.Duration `yaml:"timeout" env:"SEARCH_API_TIMEOUT" env-default:"10s"`
	UserAgent string        `yaml:"user_agent" env:"SEARCH_API_USER_AGENT" env-default:"annuaire-engine"`
}

// LookupConfig is the per-company retry policy of the annotated listing.
type LookupConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" env:"LOOKUP_MAX_ATTEMPTS" env-default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"LOOKUP_INITIAL_DELAY" env-default:"2s"`
	Multiplier   float64       `yaml:"multiplier" env:"LOOKUP_MULTIPLIER" env-default:"2"`
}

// RetryConfig converts the attempt count into a retry policy.
func (c LookupConfig) RetryConfig() *retry.Config {
	cfg := retry.LookupConfig()
	cfg.MaxRetries = c.MaxAttempts - 1
	cfg.InitialDelay = c.InitialDelay
	cfg.Multiplier = c.Multiplier
	return cfg
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether bearer tokens are validated.
	// Left off for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"false"`

	// JWTSecret verifies HS256 tokens issued by the hosted login.
	JWTSecret string `yaml:"-" env:"AUTH_JWT_SECRET"` // Secret - not in YAML

	// JWKSURL verifies asymmetric tokens when set.
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL" env-default:""`
}

// CORSConfig holds the value echoed in Access-Control-Allow-Origin.
type CORSConfig struct {
	AllowedOrigin string `yaml:"allowed_origin" env:"CORS_ALLOWED_ORIGIN" env-default:"*"`
}

// Load reads configuration from path with environment variable overrides.
// A .env file in the working directory is loaded first when present.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q (want %s or %s)", c.Database.Driver, DriverPostgres, DriverSQLite)
	}

	if c.Lookup.MaxAttempts < 1 {
		return fmt.Errorf("lookup.max_attempts must be at least 1, got %d", c.Lookup.MaxAttempts)
	}
	if c.Lookup.Multiplier < 1 {
		return fmt.Errorf("lookup.multiplier must be at least 1, got %v", c.Lookup.Multiplier)
	}

	if c.SearchAPI.BaseURL == "" && c.SearchAPI.ProxyURL == "" {
		return fmt.Errorf("search_api.base_url or search_api.proxy_url is required")
	}

	if c.Auth.EnableVerification && c.Auth.JWTSecret == "" && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth verification enabled but neither AUTH_JWT_SECRET nor auth.jwks_url is set")
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection string. A localhost
// host is rewritten to the Docker host gateway when running in a container.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
