package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.RealtimePollInterval != time.Second {
		t.Fatalf("unexpected poll interval %v", cfg.RealtimePollInterval)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"9000\"\nnotify_batch_size: 5\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MARKETPLACE_CONFIG", path)
	t.Setenv("MARKETPLACE_PORT", "9001")

	cfg := Load()
	if cfg.Port != "9001" {
		t.Fatalf("expected env to win, got %s", cfg.Port)
	}
	if cfg.NotifyBatchSize != 5 {
		t.Fatalf("expected file value 5, got %d", cfg.NotifyBatchSize)
	}
}
