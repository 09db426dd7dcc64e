package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dashboard.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
session:
  secret: test-secret
telemetry:
  base_url: https://teknikantarmuka.my.id/api
  timeout: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telemetry.BaseURL != "https://teknikantarmuka.my.id/api" {
		t.Fatalf("unexpected base url %q", cfg.Telemetry.BaseURL)
	}
	if cfg.Telemetry.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.Telemetry.Timeout)
	}
	if cfg.API.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.API.Port)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN != "data/sessions.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Devices.FetchConcurrency != 8 {
		t.Fatalf("expected fetch concurrency 8, got %d", cfg.Devices.FetchConcurrency)
	}
	if cfg.Session.CookieName != "lorawan_session" {
		t.Fatalf("unexpected cookie name %q", cfg.Session.CookieName)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
session:
  secret: from-file
telemetry:
  base_url: https://file.example
  api_key: file-key
`)
	t.Setenv("TELEMETRY_BASE_URL", "https://env.example")
	t.Setenv("TELEMETRY_API_KEY", "env-key")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PORT", "9099")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telemetry.BaseURL != "https://env.example" || cfg.Telemetry.APIKey != "env-key" {
		t.Fatalf("expected telemetry env overrides, got %+v", cfg.Telemetry)
	}
	if cfg.Session.Secret != "env-secret" {
		t.Fatalf("expected JWT_SECRET override, got %q", cfg.Session.Secret)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.API.Port != 9099 {
		t.Fatalf("expected port 9099, got %d", cfg.API.Port)
	}
}

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telemetry.BaseURL != "" || cfg.Telemetry.APIKey != "" {
		t.Fatalf("expected empty telemetry config, got %+v", cfg.Telemetry)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad driver", body: "session:\n  secret: s\nstorage:\n  driver: redis\n"},
		{name: "postgres without dsn", body: "session:\n  secret: s\nstorage:\n  driver: postgres\n"},
		{name: "bad qos", body: "session:\n  secret: s\nmqtt:\n  qos: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatalf("expected Load to fail")
			}
		})
	}
}

func TestLoadWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load(writeConfig(t, "telemetry:\n  base_url: https://x\n  api_key: k\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Fatalf("expected ValidateServer to require a session secret")
	}

	cfg.Session.Secret = "s"
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("ValidateServer failed: %v", err)
	}
}
