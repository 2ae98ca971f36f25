package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the session view.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Quit  key.Binding
	CtrlC key.Binding
	Yes   key.Binding
	No    key.Binding
}

// DefaultKeyMap provides the default key bindings.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys(KeyUp, "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys(KeyDown, "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys(KeyEnter),
		key.WithHelp("enter", "select"),
	),
	Quit: key.NewBinding(
		key.WithKeys(KeyEsc, "q"),
		key.WithHelp("esc/q", "quit and resume later"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys(KeyCtrlC),
		key.WithHelp("ctrl+c", "quit"),
	),
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "yes"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N", KeyEnter, KeyEsc, "q"),
		key.WithHelp("n", "no"),
	),
}
