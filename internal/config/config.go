// Package config handles reading and writing .hone/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/berth-dev/hone/internal/loop"
)

// Config is the top-level structure for .hone/config.yaml.
type Config struct {
	Version  int            `yaml:"version"`
	Policy   loop.Policy    `yaml:"policy"`
	Provider ProviderConfig `yaml:"provider"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
	Server   ServerConfig   `yaml:"server"`
}

// ProviderConfig selects and tunes the capability provider.
type ProviderConfig struct {
	Kind       string `yaml:"kind"`        // "claude" | "ollama"
	Model      string `yaml:"model"`
	Command    string `yaml:"command"`     // claude binary
	OllamaURL  string `yaml:"ollama_url"`
	Timeout    int    `yaml:"timeout"`     // seconds per call
	MaxRetries int    `yaml:"max_retries"` // extra attempts per call
}

// StoreConfig selects where session state lives.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "sqlite" | "file" | "memory"
	Path    string `yaml:"path"`    // relative to the project root
}

// LogConfig controls diagnostic and event logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Events bool   `yaml:"events"` // append session events to .hone/log.jsonl
	Debug  bool   `yaml:"debug"`  // write diagnostics to .hone/debug.log instead of stderr
}

// CleanupConfig controls pruning of finished sessions.
type CleanupConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

// ServerConfig controls `hone serve`.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

const (
	// Dir is the project-local state directory.
	Dir        = ".hone"
	configFile = "config.yaml"
)

// Provider kinds.
const (
	ProviderClaude = "claude"
	ProviderOllama = "ollama"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// ReadConfig reads .hone/config.yaml from the given project directory.
// dir is the project root (not .hone/ itself).
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, Dir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var raw struct {
		Policy yaml.Node `yaml:"policy"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !raw.Policy.IsZero() {
		p, err := decodePolicy(&raw.Policy)
		if err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		cfg.Policy = p
	}

	return cfg, nil
}

// decodePolicy starts from the preset named by the node's kind and
// overlays only the fields the node sets.
func decodePolicy(node *yaml.Node) (loop.Policy, error) {
	var head struct {
		Kind string `yaml:"kind"`
	}
	if err := node.Decode(&head); err != nil {
		return loop.Policy{}, err
	}
	p, err := loop.PolicyByName(head.Kind)
	if err != nil {
		return loop.Policy{}, err
	}
	if err := node.Decode(&p); err != nil {
		return loop.Policy{}, err
	}
	return p, nil
}

// LoadOrDefault reads the project config, falling back to defaults when no
// config file exists, then applies environment overrides and validates.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = DefaultConfig()
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteConfig writes cfg to .hone/config.yaml in the given project directory.
// Creates the .hone/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, Dir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Policy:  loop.TwoTier(),
		Provider: ProviderConfig{
			Kind:       ProviderClaude,
			Model:      "sonnet",
			Command:    "claude",
			OllamaURL:  "http://localhost:11434",
			Timeout:    120,
			MaxRetries: 1,
		},
		Store: StoreConfig{
			Backend: StoreSQLite,
			Path:    filepath.Join(Dir, "sessions.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Events: true,
		},
		Cleanup: CleanupConfig{
			MaxAgeDays: 30,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8742",
		},
	}
}

// Validate checks the config for values the rest of hone cannot work with.
func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Provider.Kind {
	case ProviderClaude, ProviderOllama:
	default:
		return fmt.Errorf("config: unknown provider kind %q", c.Provider.Kind)
	}
	if c.Provider.Timeout < 0 || c.Provider.MaxRetries < 0 {
		return fmt.Errorf("config: provider timeout and max_retries must not be negative")
	}
	switch c.Store.Backend {
	case StoreSQLite, StoreFile:
		if c.Store.Path == "" {
			return fmt.Errorf("config: store path is required for the %s backend", c.Store.Backend)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	return nil
}
