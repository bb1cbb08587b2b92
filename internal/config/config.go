// Package config loads runtime configuration from a YAML file with
// environment overrides. The CLI runs happily on defaults alone; the worker
// needs at least a database URL.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	LogLevel    string        `yaml:"log_level"`
	DataDir     string        `yaml:"data_dir"`
	DatabaseURL string        `yaml:"database_url"`
	NATSURL     string        `yaml:"nats_url"`
	ListenAddr  string        `yaml:"listen_addr"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// WindowDays is the default scrape window for sources that do not
	// configure their own.
	WindowDays int `yaml:"window_days"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		LogLevel:    "info",
		DataDir:     "~/.hareline",
		NATSURL:     "nats://127.0.0.1:4222",
		ListenAddr:  ":8080",
		HTTPTimeout: 30 * time.Second,
		WindowDays:  14,
	}
}

// Load reads configuration in layers: defaults, then the YAML file at path
// (skipped silently when path is empty or the file does not exist), then
// HARELINE_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fine; a config file is optional.
		case err != nil:
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if cfg.HTTPTimeout <= 0 {
		return cfg, fmt.Errorf("http_timeout must be positive, got %s", cfg.HTTPTimeout)
	}
	if cfg.WindowDays <= 0 {
		return cfg, fmt.Errorf("window_days must be positive, got %d", cfg.WindowDays)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr("HARELINE_LOG_LEVEL", &cfg.LogLevel)
	setStr("HARELINE_DATA_DIR", &cfg.DataDir)
	setStr("HARELINE_DATABASE_URL", &cfg.DatabaseURL)
	setStr("HARELINE_NATS_URL", &cfg.NATSURL)
	setStr("HARELINE_LISTEN_ADDR", &cfg.ListenAddr)

	if v := os.Getenv("HARELINE_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if v := os.Getenv("HARELINE_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WindowDays = n
		}
	}
}
