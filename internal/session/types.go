// Package session persists refinement sessions: SQLite, one JSON file per
// session under a directory, or memory.
package session

import (
	"time"

	"github.com/berth-dev/hone/internal/loop"
)

// Summary provides a high-level view of a session for listing.
type Summary struct {
	ID             string     `json:"id"`
	Prompt         string     `json:"prompt"`
	Phase          loop.Phase `json:"phase"`
	Mode           loop.Mode  `json:"mode,omitempty"`
	Score          int        `json:"score"`
	IterationCount int        `json:"iteration_count"`
	QuestionCount  int        `json:"question_count"`
	Counter        int        `json:"counter"`
	Cap            int        `json:"cap"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Summarize builds the listing view of s.
func Summarize(s *loop.State) Summary {
	return Summary{
		ID:             s.ID,
		Prompt:         s.InitialPrompt,
		Phase:          s.Phase,
		Mode:           s.Mode,
		Score:          s.Score,
		IterationCount: s.IterationCount,
		QuestionCount:  s.QuestionCount,
		Counter:        s.CapCounter(),
		Cap:            s.Policy.Cap,
		UpdatedAt:      s.UpdatedAt,
	}
}
