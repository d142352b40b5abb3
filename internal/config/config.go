package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the sync service.
// Environment variables are parsed from the DESTINY2_ prefix.
type Config struct {
	// Build target selects the deployment shape: local (sqlite credential
	// store) or cloud (postgres credential store).
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// Credential store driver, derived from BuildTarget when "auto".
	CredStoreDriver string `envconfig:"CREDSTORE_DRIVER" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration (health, snapshot, OAuth callback, metrics)
	HTTPPort int `envconfig:"HTTP_PORT" default:"8124"`

	// ExternalURL is the externally reachable base URL used to build the
	// OAuth redirect URI handed to Bungie.
	ExternalURL string `envconfig:"EXTERNAL_URL" default:"http://localhost:8124"`

	// Bungie API endpoints; overridable for tests.
	APIBaseURL    string `envconfig:"API_BASE_URL" default:"https://www.bungie.net/Platform"`
	OAuthTokenURL string `envconfig:"OAUTH_TOKEN_URL" default:"https://www.bungie.net/Platform/App/OAuth/Token/"`
	OAuthAuthURL  string `envconfig:"OAUTH_AUTHORIZE_URL" default:"https://www.bungie.net/en/OAuth/Authorize"`

	// Credential store backends
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Sync cadence and HTTP behavior
	UpdateIntervalMinutes int `envconfig:"UPDATE_INTERVAL_MINUTES" default:"15"`
	RequestTimeoutSeconds int `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"30"`
	TokenLookaheadMinutes int `envconfig:"TOKEN_LOOKAHEAD_MINUTES" default:"5"`
}

// ResolveDefaults validates BuildTarget and derives CredStoreDriver and the
// sqlite path when left on "auto"/empty.
func (c *Config) ResolveDefaults() error {
	var defaultDriver string

	switch c.BuildTarget {
	case "local":
		defaultDriver = "sqlite"
	case "cloud":
		defaultDriver = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.CredStoreDriver == "" || c.CredStoreDriver == "auto" {
		c.CredStoreDriver = defaultDriver
	}
	if c.CredStoreDriver == "sqlite" && c.SQLitePath == "" {
		c.SQLitePath = "data/destiny2.db"
	}

	allowed := map[string]bool{"sqlite": true, "postgres": true}
	if !allowed[c.CredStoreDriver] {
		return fmt.Errorf("unsupported CREDSTORE_DRIVER: %s", c.CredStoreDriver)
	}
	if c.CredStoreDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DESTINY2_POSTGRES_DSN required for postgres credential store")
	}
	if c.UpdateIntervalMinutes <= 0 {
		return fmt.Errorf("UPDATE_INTERVAL_MINUTES must be positive")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: DESTINY2_HTTP_PORT, DESTINY2_POSTGRES_DSN.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DESTINY2", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("credstore_driver", cfg.CredStoreDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Int("update_interval_minutes", cfg.UpdateIntervalMinutes).
		Str("api_base_url", cfg.APIBaseURL).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		BuildTarget:           "local",
		CredStoreDriver:       "sqlite",
		Environment:           EnvTesting,
		HTTPPort:              8124,
		ExternalURL:           "http://localhost:8124",
		APIBaseURL:            "https://www.bungie.net/Platform",
		OAuthTokenURL:         "https://www.bungie.net/Platform/App/OAuth/Token/",
		OAuthAuthURL:          "https://www.bungie.net/en/OAuth/Authorize",
		SQLitePath:            "data/destiny2.db",
		UpdateIntervalMinutes: 15,
		RequestTimeoutSeconds: 30,
		TokenLookaheadMinutes: 5,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UpdateInterval returns the sync cadence as a duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMinutes) * time.Minute
}

// RequestTimeout returns the per-call HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// TokenLookahead returns the refresh lookahead window.
func (c *Config) TokenLookahead() time.Duration {
	return time.Duration(c.TokenLookaheadMinutes) * time.Minute
}
