package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "info" || cfg.WindowDays != 14 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("http timeout default: %s", cfg.HTTPTimeout)
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
}

func TestLoadFileAndEnvLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hareline.yaml")
	body := "log_level: debug\nnats_url: nats://broker:4222\nwindow_days: 7\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HARELINE_NATS_URL", "nats://override:4222")
	t.Setenv("HARELINE_HTTP_TIMEOUT", "10s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("file value not applied: %q", cfg.LogLevel)
	}
	if cfg.WindowDays != 7 {
		t.Errorf("file value not applied: %d", cfg.WindowDays)
	}
	if cfg.NATSURL != "nats://override:4222" {
		t.Errorf("env should beat file: %q", cfg.NATSURL)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("env duration not applied: %s", cfg.HTTPTimeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hareline.yaml")
	if err := os.WriteFile(path, []byte("window_days: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for negative window_days")
	}
}
