// Package config loads application configuration from environment variables.
//
// WHY A CONFIG STRUCT INSTEAD OF os.Getenv CALLS SCATTERED AROUND?
// Every knob lives in one place, with its env var name and default visible
// next to the field. caarlos0/env populates the struct from the environment
// in one call, so main.go stays minimal and the rest of the code never
// touches os.Getenv directly.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration, populated from env vars.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/checklist.db"`

	// TokenSecret signs and verifies identity tokens (HS256).
	// Generate with: openssl rand -hex 32
	TokenSecret string `env:"TOKEN_SECRET"`

	// InternalAPIKey authenticates trusted backend-to-backend callers
	// (the provider's login webhook). Empty disables the internal routes.
	InternalAPIKey string `env:"INTERNAL_API_KEY"`

	// Identity provider OAuth settings. All of them must be set for the
	// browser login flow; API clients that already hold tokens don't need them.
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	OAuthAuthURL      string `env:"OAUTH_AUTH_URL"`
	OAuthTokenURL     string `env:"OAUTH_TOKEN_URL"`
	OAuthUserInfoURL  string `env:"OAUTH_USERINFO_URL"`
	OAuthCallbackURL  string `env:"OAUTH_CALLBACK_URL"`

	// Rate limiting (per authenticated subject, falling back to client IP).
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPM     int  `env:"RATE_LIMIT_RPM" envDefault:"120"`
	RateLimitBurst   int  `env:"RATE_LIMIT_BURST" envDefault:"30"`

	// Server timeouts.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OAuthConfigured reports whether the browser login flow can be enabled.
// The callback URL counts: without it the provider would be handed an empty
// redirect_uri.
func (c *Config) OAuthConfigured() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != "" &&
		c.OAuthAuthURL != "" && c.OAuthTokenURL != "" &&
		c.OAuthUserInfoURL != "" && c.OAuthCallbackURL != ""
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT must be in 1-65535, got %d", c.Port)
	}
	if c.TokenSecret == "" {
		return errors.New("config: TOKEN_SECRET is required")
	}
	if len(c.TokenSecret) < 16 {
		return errors.New("config: TOKEN_SECRET must be at least 16 characters")
	}
	if c.RateLimitEnabled && c.RateLimitRPM <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_RPM must be positive, got %d", c.RateLimitRPM)
	}
	return nil
}
