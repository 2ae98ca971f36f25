package tui

import "github.com/berth-dev/hone/internal/loop"

// stepMsg carries the result of an Advance or Answer call.
type stepMsg struct {
	state *loop.State
	err   error
}

// chatMsg carries the result of a Chat call.
type chatMsg struct {
	state *loop.State
	err   error
}
