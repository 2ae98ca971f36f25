package config

import (
	"os"
	"strconv"

	"github.com/berth-dev/hone/internal/loop"
)

// ApplyEnv overrides config values from the environment. Unset or
// unparseable variables leave the config untouched.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("HONE_PROVIDER"); v != "" {
		cfg.Provider.Kind = v
	}
	if v := os.Getenv("HONE_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Provider.OllamaURL = v
	}
	if v := os.Getenv("HONE_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("HONE_POLICY"); v != "" {
		// Switching kind drops the file's thresholds, which were set for
		// the other preset.
		if p, err := loop.PolicyByName(v); err == nil && p.Kind != cfg.Policy.Kind {
			cfg.Policy = p
		}
	}
	if v := os.Getenv("HONE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Provider.Timeout = n
		}
	}
	if v := os.Getenv("HONE_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("HONE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
