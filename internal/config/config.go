// Package config loads Smart ADL configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Smart ADL settings.
type Config struct {
	// Addr is the listen address. Empty means a random port on loopback.
	Addr string `yaml:"addr"`

	// DatabasePath is the SQLite file. Defaults to prompts.sqlite in
	// the config directory.
	DatabasePath string `yaml:"database_path"`

	// APIKey is the Gemini API key. GEMINI_API_KEY overrides it.
	APIKey string `yaml:"api_key"`

	// AssistantModel answers editor questions and optimizes code.
	AssistantModel string `yaml:"assistant_model"`

	// TestModel is used by the batch prompt tests.
	TestModel string `yaml:"test_model"`

	// Timeout bounds each generation call, e.g. "120s".
	Timeout string `yaml:"timeout"`

	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug"`
}

func Default() Config {
	return Config{
		AssistantModel: "gemini-2.0-flash",
		TestModel:      "gemini-1.5-flash",
		Timeout:        "120s",
	}
}

// Dir returns the Smart ADL home directory (~/.smartadl), creating it
// if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir := filepath.Join(home, ".smartadl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating .smartadl directory: %w", err)
	}
	return dir, nil
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist, then applies environment overrides. Relative
// DatabasePath entries are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(filepath.Dir(path), "prompts.sqlite")
	} else if !filepath.IsAbs(cfg.DatabasePath) {
		cfg.DatabasePath = filepath.Join(filepath.Dir(path), cfg.DatabasePath)
	}

	applyEnv(&cfg)

	if _, err := cfg.CallTimeout(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("SMARTADL_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SMARTADL_DB"); v != "" {
		cfg.DatabasePath = v
	}
}

// CallTimeout parses the per-call generation timeout.
func (c Config) CallTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parsing timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
