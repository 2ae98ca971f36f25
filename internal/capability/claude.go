// claude.go runs the Claude CLI as a one-shot subprocess per call.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ClaudeGenerator invokes `claude -p` and returns the result text.
type ClaudeGenerator struct {
	Command string
	Model   string
	Dir     string
}

// claudeOutput is the JSON envelope printed by --output-format json.
type claudeOutput struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	Result     string  `json:"result"`
	IsError    bool    `json:"is_error"`
	CostUSD    float64 `json:"cost_usd"`
	DurationMs int64   `json:"duration_ms"`
}

// NewClaudeGenerator returns a generator for the given binary and model.
func NewClaudeGenerator(command, model, dir string) *ClaudeGenerator {
	if command == "" {
		command = "claude"
	}
	return &ClaudeGenerator{Command: command, Model: model, Dir: dir}
}

// Name implements Generator.
func (g *ClaudeGenerator) Name() string { return "claude" }

// Generate implements Generator.
func (g *ClaudeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, g.Command, g.args(prompt)...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("claude exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("running claude: %w", err)
	}

	return parseClaudeOutput(stdout.Bytes())
}

func (g *ClaudeGenerator) args(prompt string) []string {
	args := []string{"-p", prompt, "--output-format", "json"}
	if g.Model != "" {
		args = append(args, "--model", g.Model)
	}
	return args
}

// parseClaudeOutput extracts the result text from the CLI envelope.
func parseClaudeOutput(raw []byte) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", fmt.Errorf("empty claude output")
	}

	var out claudeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parsing claude output: %w", err)
	}
	if out.Type != "result" {
		return "", fmt.Errorf("unexpected claude output type: %q (expected \"result\")", out.Type)
	}
	if out.IsError {
		return "", fmt.Errorf("claude returned an error: %s", out.Result)
	}
	return out.Result, nil
}
