package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  port: "9090"
postgres:
  url: postgres://from-file
redis:
  addr: localhost:6379
quiz:
  ttl: 2m
activity:
  listLimit: 50
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POSTGRES_URL", "postgres://from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Postgres.URL != "postgres://from-env" {
		t.Fatalf("expected env override, got %q", cfg.Postgres.URL)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Activity.ListLimit != 50 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := TTLDuration(cfg.Quiz.TTL, time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m ttl, got %s", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "" {
		t.Fatalf("expected empty port, got %q", cfg.Server.Port)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback for empty, got %s", got)
	}
	if got := TTLDuration("soon", time.Second); got != time.Second {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
}

func TestPortAndConfigPathFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PORT", "7070")

	if got := DefaultPath(); got != path {
		t.Fatalf("expected CONFIG_PATH to pick the file, got %q", got)
	}
	cfg, err := Load(DefaultPath())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected PORT to override the file, got %q", cfg.Server.Port)
	}

	t.Setenv("CONFIG_PATH", "")
	if got := DefaultPath(); got != "config/config.yaml" {
		t.Fatalf("expected default path, got %q", got)
	}
}
