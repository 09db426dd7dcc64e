package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	return writeConfigWithSecret(t, baseURL, "test")
}

func writeConfigWithSecret(t *testing.T, baseURL, secret string) string {
	t.Helper()

	dir := t.TempDir()
	credsPath := filepath.Join(dir, "users.json")
	creds := `{"users":[{"username":"praktikan","password":"pw"}],"admin":[{"username":"labte","password":"admin"}]}`
	if err := os.WriteFile(credsPath, []byte(creds), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}

	cfgPath := filepath.Join(dir, "dashboard.yml")
	yml := "telemetry:\n  base_url: " + baseURL + "\n  api_key: k\n" +
		"credentials:\n  file: " + credsPath + "\n" +
		"storage:\n  driver: memory\n"
	if secret != "" {
		yml += "session:\n  secret: " + secret + "\n"
	}
	if err := os.WriteFile(cfgPath, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckLogin(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1")

	out, err := run(t, "--config", cfgPath, "check-login", "--role", "admin", "--password", "admin", "labte")
	if err != nil {
		t.Fatalf("check-login failed: %v", err)
	}
	if !strings.Contains(out, "login accepted") {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := run(t, "--config", cfgPath, "check-login", "--role", "admin", "--password", "pw", "praktikan"); err == nil {
		t.Fatalf("expected user credentials to be rejected for admin")
	}
}

func TestUplinksCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"ts":"2025-06-01T10:00:00Z","device_name":"node","dev_eui":"aa","data_text":"temp=21"}]`))
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "--config", cfgPath, "uplinks", "AA", "-n", "25", "--json=false")
	if err != nil {
		t.Fatalf("uplinks failed: %v", err)
	}
	if !strings.Contains(out, "node (aa)") || !strings.Contains(out, "temp=21") {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := run(t, "--config", cfgPath, "uplinks", "AA", "-n", "7"); err == nil {
		t.Fatalf("expected invalid count to fail")
	}
}

func TestUplinksWithoutSessionSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[{"device_name":"node","dev_eui":"aa","data_text":"temp=21"}]`))
	}))
	defer srv.Close()

	cfgPath := writeConfigWithSecret(t, srv.URL, "")

	out, err := run(t, "--config", cfgPath, "uplinks", "aa", "-n", "10", "--json=false")
	if err != nil {
		t.Fatalf("uplinks failed without a session secret: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one telemetry call, got %d", calls)
	}
	if !strings.Contains(out, "temp=21") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestDevicesRejectsDaysOutOfRange(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, srv.URL)
	t.Cleanup(func() { deviceDays = 0 })

	if _, err := run(t, "--config", cfgPath, "devices", "--days", "1000000"); err == nil {
		t.Fatalf("expected --days above 365 to fail")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no telemetry calls, got %d", calls)
	}
}
