package capability

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/berth-dev/hone/internal/config"
)

// New builds the Client selected by cfg.Provider. dir is the working
// directory for subprocess providers.
func New(cfg *config.Config, dir string, logger *slog.Logger) (*Client, error) {
	timeout := time.Duration(cfg.Provider.Timeout) * time.Second

	var gen Generator
	switch cfg.Provider.Kind {
	case config.ProviderClaude:
		gen = NewClaudeGenerator(cfg.Provider.Command, cfg.Provider.Model, dir)
	case config.ProviderOllama:
		gen = NewOllamaGenerator(cfg.Provider.OllamaURL, cfg.Provider.Model, 0)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}

	opts := []Option{WithTimeout(timeout), WithRetries(cfg.Provider.MaxRetries)}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return NewClient(gen, opts...), nil
}
