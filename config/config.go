// Package config loads tool configuration from a YAML file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the complete tool configuration
type Config struct {
	Format  string    `yaml:"format"`  // Default output format: table, csv or json
	History string    `yaml:"history"` // REPL history file path
	GEE     GEEConfig `yaml:"gee"`     // Earth Engine adapter settings
}

// GEEConfig holds Earth Engine proxy settings
type GEEConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured request timeout.
func (g GEEConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Format:  "table",
		History: filepath.Join(home, ".etl_history"),
	}
}

// Load reads a YAML config file, filling unset fields with defaults. A
// missing file is not an error and yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	if cfg.Format == "" {
		cfg.Format = "table"
	}
	if cfg.History == "" {
		cfg.History = Default().History
	}
	return cfg, nil
}
