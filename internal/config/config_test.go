package config

import (
	"testing"
	"time"
)

// setRequired sets the minimum environment for Load to succeed.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "data/checklist.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "data/checklist.db")
	}
	if !cfg.RateLimitEnabled {
		t.Error("RateLimitEnabled should default to true")
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingTokenSecret(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without TOKEN_SECRET")
	}
}

func TestLoad_ShortTokenSecret(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a short TOKEN_SECRET")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject an out-of-range port")
	}
}

func TestOAuthConfigured(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OAuthConfigured() {
		t.Error("OAuthConfigured() = true with no provider settings")
	}

	t.Setenv("OAUTH_CLIENT_ID", "id")
	t.Setenv("OAUTH_CLIENT_SECRET", "secret")
	t.Setenv("OAUTH_AUTH_URL", "https://idp.example.com/authorize")
	t.Setenv("OAUTH_TOKEN_URL", "https://idp.example.com/token")
	t.Setenv("OAUTH_USERINFO_URL", "https://idp.example.com/userinfo")

	// Everything except the callback URL: still not configured — the
	// provider would be handed an empty redirect_uri.
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OAuthConfigured() {
		t.Error("OAuthConfigured() = true without a callback URL")
	}

	t.Setenv("OAUTH_CALLBACK_URL", "https://app.example.com/auth/callback")

	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.OAuthConfigured() {
		t.Error("OAuthConfigured() = false with full provider settings")
	}
}
