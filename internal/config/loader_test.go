package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("default port %d", cfg.HTTPPort)
	}
	if cfg.NotifyLeadTime != 10*time.Minute {
		t.Fatalf("default lead time %v", cfg.NotifyLeadTime)
	}
	if cfg.NotifyEvalEvery != 30*time.Second || cfg.NotifyCleanupEvery != 5*time.Minute {
		t.Fatalf("default cadences %v / %v", cfg.NotifyEvalEvery, cfg.NotifyCleanupEvery)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "http_port: 9001\nnotify_lead_time: 15m\nsession_purge_cron: \"@daily\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("FAMILY_HTTP_PORT", "9002")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 9002 {
		t.Fatalf("env should override file, got port %d", cfg.HTTPPort)
	}
	if cfg.NotifyLeadTime != 15*time.Minute {
		t.Fatalf("file value lost, lead time %v", cfg.NotifyLeadTime)
	}
	if cfg.SessionPurgeCron != "@daily" {
		t.Fatalf("file value lost, cron %q", cfg.SessionPurgeCron)
	}
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	t.Setenv("FAMILY_HTTP_PORT", "not-a-port")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid port")
	}

	t.Setenv("FAMILY_HTTP_PORT", "")
	t.Setenv("FAMILY_SESSION_TTL", "-5m")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for negative TTL")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	// A default path that does not exist is tolerated.
	t.Setenv("FAMILY_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(""); err != nil {
		t.Fatalf("missing default config should not fail: %v", err)
	}
}
