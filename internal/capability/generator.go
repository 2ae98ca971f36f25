// Package capability implements loop.Capability on top of a text
// generator: the Claude CLI or an Ollama server.
package capability

import "context"

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}
