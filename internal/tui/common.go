// Package tui implements the interactive refinement loop: a Bubble Tea
// interface for terminals and a line-based fallback for pipes.
package tui

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/berth-dev/hone/internal/loop"
)

// Common key binding constants.
const (
	KeyCtrlC = "ctrl+c"
	KeyEnter = "enter"
	KeyEsc   = "esc"
	KeyUp    = "up"
	KeyDown  = "down"
)

// Driver is the part of the orchestrator the interactive loop uses.
type Driver interface {
	Advance(ctx context.Context, id string) (*loop.State, error)
	Answer(ctx context.Context, id string, patch loop.Patch) (*loop.State, error)
	Chat(ctx context.Context, id string) (*loop.State, error)
}

// IsTTY returns true if both stdin and stdout are connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// Run starts the Bubble Tea program in alternate screen mode and returns
// the final model.
func Run(m Model) (Model, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return m, err
	}
	if fm, ok := final.(Model); ok {
		return fm, nil
	}
	return m, nil
}
