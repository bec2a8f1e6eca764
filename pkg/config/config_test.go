package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"ATLAS_SERVER_ADDR", "ATLAS_AUTH_MODE", "ATLAS_DISABLE_AUTH",
		"ATLAS_SESSION_IDLE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.ServerAddr != "localhost:8002" {
		t.Errorf("Expected default server addr, got %q", cfg.ServerAddr)
	}
	if cfg.AuthMode != AuthModeGoogle {
		t.Errorf("Expected google as the default auth mode, got %q", cfg.AuthMode)
	}
	if cfg.DisableAuth {
		t.Error("Auth must be enabled by default")
	}
	if cfg.SessionIdleTimeout != 30*time.Minute {
		t.Errorf("Expected 30m default idle timeout, got %s", cfg.SessionIdleTimeout)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ATLAS_SERVER_ADDR", "0.0.0.0:9000")
	t.Setenv("ATLAS_AUTH_MODE", AuthModeJWT)
	t.Setenv("ATLAS_JWT_SECRET", "test-secret")
	t.Setenv("ATLAS_DISABLE_AUTH", "true")
	t.Setenv("ATLAS_SESSION_IDLE_TIMEOUT", "15m")

	cfg := LoadConfig()

	if cfg.ServerAddr != "0.0.0.0:9000" {
		t.Errorf("Unexpected server addr %q", cfg.ServerAddr)
	}
	if cfg.AuthMode != AuthModeJWT {
		t.Errorf("Unexpected auth mode %q", cfg.AuthMode)
	}
	if cfg.JWTSecret != "test-secret" {
		t.Errorf("Unexpected jwt secret %q", cfg.JWTSecret)
	}
	if !cfg.DisableAuth {
		t.Error("Expected auth disabled")
	}
	if cfg.SessionIdleTimeout != 15*time.Minute {
		t.Errorf("Expected 15m idle timeout, got %s", cfg.SessionIdleTimeout)
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	t.Setenv("ATLAS_SESSION_IDLE_TIMEOUT", "soon")

	cfg := LoadConfig()
	if cfg.SessionIdleTimeout != 30*time.Minute {
		t.Errorf("Bad duration must fall back to the default, got %s", cfg.SessionIdleTimeout)
	}
}
