package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSettings(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), []byte(body), 0600); err != nil {
		t.Fatalf("failed to write config.yaml: %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv(envAPIURL, "")
	t.Setenv(envRedisURL, "")

	cfg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("expected %q, got %q", DefaultAPIURL, cfg.APIURL)
	}
	if cfg.StaleTime != DefaultStaleTime {
		t.Errorf("expected stale time %v, got %v", DefaultStaleTime, cfg.StaleTime)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected max retries %d, got %d", DefaultMaxRetries, cfg.MaxRetries)
	}
	if cfg.OptimisticReorder {
		t.Error("expected optimistic reorder to be off by default")
	}
}

func TestNew_SettingsFile(t *testing.T) {
	t.Setenv(envAPIURL, "")
	t.Setenv(envRedisURL, "")
	dir := t.TempDir()
	writeSettings(t, dir, `
api_url: https://trips.example.com/api/
currency: EUR
optimistic_reorder: true
cache:
  stale_time: 30s
  max_retries: 0
  redis_url: redis://localhost:6379/2
`)

	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL != "https://trips.example.com/api" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.APIURL)
	}
	if cfg.Currency != "EUR" {
		t.Errorf("expected EUR, got %q", cfg.Currency)
	}
	if !cfg.OptimisticReorder {
		t.Error("expected optimistic reorder on")
	}
	if cfg.StaleTime != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.StaleTime)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("expected explicit zero retries, got %d", cfg.MaxRetries)
	}
	if cfg.RedisURL != "redis://localhost:6379/2" {
		t.Errorf("unexpected redis url %q", cfg.RedisURL)
	}
}

func TestNew_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "api_url: http://from-file/api\n")
	t.Setenv(envAPIURL, "http://from-env/api")
	t.Setenv(envRedisURL, "")

	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL != "http://from-env/api" {
		t.Errorf("expected env override, got %q", cfg.APIURL)
	}
}

func TestNew_InvalidStaleTime(t *testing.T) {
	for _, v := range []string{"soon", "0s", "-1m"} {
		dir := t.TempDir()
		writeSettings(t, dir, "cache:\n  stale_time: "+v+"\n")

		if _, err := New(dir); err == nil {
			t.Errorf("expected error for stale_time %q", v)
		}
	}
}

func TestNew_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "api_url: [unterminated\n")

	if _, err := New(dir); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultConfigDir(); got != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("unexpected dir %q", got)
	}
}
