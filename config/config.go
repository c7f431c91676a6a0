// Package config holds all environment-based configuration for the gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aeroscan/aeroscan/upstream"
)

// Config holds all gateway settings, loaded from the environment with an
// optional .env file (the original deployment shipped one).
type Config struct {
	// ListenAddr is the HTTP listen address
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":3001"`

	// Environment controls log format: text in development, JSON otherwise
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// LogLevel is the minimum slog level (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// PartnerBaseURL is the partner API base
	PartnerBaseURL string `env:"PARTNER_API_BASE_URL" envDefault:"https://seats.aero/partnerapi"`

	// APIKeyHeader is the inbound header carrying a partner API key
	APIKeyHeader string `env:"API_KEY_HEADER" envDefault:"X-API-Key"`

	// ProfileDBPath is the bbolt database for saved trip lists.
	// Defaults to ~/.aeroscan/profiles.db.
	ProfileDBPath string `env:"PROFILE_DB_PATH"`

	// OAuth settings. All three of client ID, client secret, and redirect URL
	// must be set for the OAuth endpoints to be enabled.
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	OAuthRedirectURL  string `env:"OAUTH_REDIRECT_URL"`
	OAuthAuthURL      string `env:"OAUTH_AUTH_URL" envDefault:"https://seats.aero/oauth/authorize"`
	OAuthTokenURL     string `env:"OAUTH_TOKEN_URL" envDefault:"https://seats.aero/oauth/token"`
	OAuthUserInfoURL  string `env:"OAUTH_USERINFO_URL" envDefault:"https://seats.aero/oauth/userinfo"`
	OAuthScopes       string `env:"OAUTH_SCOPES" envDefault:"read"`

	// StateTTL bounds how long OAuth state and result entries survive
	StateTTL time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	// Rate limiting for the OAuth endpoints. Zero disables.
	RateLimitRPS   int  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int  `env:"RATE_LIMIT_BURST" envDefault:"20"`
	TrustProxy     bool `env:"TRUST_PROXY" envDefault:"false"`

	// AuthFallbackFile optionally points at a YAML file overriding the
	// bearer-token header fallback chain
	AuthFallbackFile string `env:"AUTH_FALLBACK_FILE"`

	// MetricsEnabled turns on OpenTelemetry instrumentation
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"false"`
}

// Load reads configuration from environment variables, first loading a .env
// file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ProfileDBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("determining home directory: %w", err)
		}
		cfg.ProfileDBPath = filepath.Join(home, ".aeroscan", "profiles.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.PartnerBaseURL == "" {
		return fmt.Errorf("PARTNER_API_BASE_URL must not be empty")
	}
	if c.StateTTL <= 0 {
		return fmt.Errorf("OAUTH_STATE_TTL must be positive")
	}

	// OAuth is optional, but a partial configuration is almost certainly a
	// deployment mistake worth failing fast on.
	set := 0
	for _, v := range []string{c.OAuthClientID, c.OAuthClientSecret, c.OAuthRedirectURL} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("OAuth configuration incomplete: missing %s", strings.Join(c.MissingOAuthSettings(), ", "))
	}

	return nil
}

// OAuthEnabled reports whether the OAuth endpoints are fully configured.
func (c *Config) OAuthEnabled() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != "" && c.OAuthRedirectURL != ""
}

// MissingOAuthSettings names the unset OAuth settings, for error detail.
func (c *Config) MissingOAuthSettings() []string {
	var missing []string
	if c.OAuthClientID == "" {
		missing = append(missing, "OAUTH_CLIENT_ID")
	}
	if c.OAuthClientSecret == "" {
		missing = append(missing, "OAUTH_CLIENT_SECRET")
	}
	if c.OAuthRedirectURL == "" {
		missing = append(missing, "OAUTH_REDIRECT_URL")
	}
	return missing
}

// Scopes splits the configured scope string.
func (c *Config) Scopes() []string {
	fields := strings.Fields(strings.ReplaceAll(c.OAuthScopes, ",", " "))
	return fields
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// fallbackFile is the YAML shape of an AUTH_FALLBACK_FILE.
type fallbackFile struct {
	Strategies []upstream.HeaderStrategy `yaml:"strategies"`
}

// BearerStrategies returns the header fallback chain for bearer tokens: the
// configured YAML list when AUTH_FALLBACK_FILE is set, the built-in default
// otherwise. Keeping the chain in configuration means a changed upstream
// header convention needs no code change.
func (c *Config) BearerStrategies() ([]upstream.HeaderStrategy, error) {
	if c.AuthFallbackFile == "" {
		return upstream.DefaultBearerStrategies(), nil
	}

	raw, err := os.ReadFile(c.AuthFallbackFile)
	if err != nil {
		return nil, fmt.Errorf("reading auth fallback file: %w", err)
	}

	var file fallbackFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing auth fallback file: %w", err)
	}
	if len(file.Strategies) == 0 {
		return nil, fmt.Errorf("auth fallback file %s defines no strategies", c.AuthFallbackFile)
	}
	for i, s := range file.Strategies {
		if s.Header == "" {
			return nil, fmt.Errorf("auth fallback strategy %d has no header", i)
		}
	}

	return file.Strategies, nil
}
