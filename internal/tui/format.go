package tui

import (
	"fmt"

	"github.com/berth-dev/hone/internal/loop"
)

// policyView is the slice of state needed to color a score.
type policyView struct {
	score int
	good  int
	low   int
}

// CounterLabel renders the capped counter, e.g. "Questions 2/5".
func CounterLabel(st *loop.State) string {
	name := "Iteration"
	if st.Policy.CapOn == loop.CapOnQuestions {
		name = "Questions"
	}
	return fmt.Sprintf("%s %d/%d", name, st.CapCounter(), st.Policy.Cap)
}

// StatusLine renders score and counter, e.g. "Score 65/100 · Questions 2/5".
func StatusLine(st *loop.State) string {
	return fmt.Sprintf("Score %d/100 · %s", st.Score, CounterLabel(st))
}

// Outcome describes how a finished session ended.
func Outcome(st *loop.State) string {
	switch {
	case st.Phase != loop.PhaseDone:
		return string(st.Phase)
	case st.IsGood():
		return "accepted"
	default:
		return "stopped at cap"
	}
}

func styledScore(st *loop.State) string {
	pv := &policyView{score: st.Score, good: st.Policy.GoodScore, low: st.Policy.LowScore}
	return scoreStyle(pv).Render(fmt.Sprintf("%d/100", st.Score))
}
