package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/berth-dev/hone/internal/loop"
	"github.com/berth-dev/hone/internal/tui"
)

var jsonFlag bool

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printState renders a session for humans: status, prompt and whatever
// the session is waiting for.
func printState(w io.Writer, st *loop.State) {
	fmt.Fprintf(w, "Session: %s\n", st.ID)
	fmt.Fprintf(w, "Phase:   %s\n", st.Phase)
	fmt.Fprintf(w, "%s\n", tui.StatusLine(st))
	if st.LastError != "" {
		fmt.Fprintf(w, "Provider error: %s\n", st.LastError)
	}
	fmt.Fprintf(w, "\nPrompt:\n%s\n", indent(st.CurrentPrompt))

	switch {
	case st.Suspended() && st.Mode == loop.ModeNeedsDetail:
		fmt.Fprintf(w, "\nNeeds detail:\n%s\n", indent(st.Guidance))
		fmt.Fprintf(w, "\nAnswer with: hone answer %s --feedback \"...\"\n", st.ID)
	case st.Suspended() && st.Mode == loop.ModeNeedsChoice:
		fmt.Fprintf(w, "\n%s\n", st.Question)
		for i, opt := range st.Options {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, opt)
		}
		fmt.Fprintf(w, "\nAnswer with: hone answer %s --choice <n|text> [--feedback \"...\"]\n", st.ID)
	case st.Phase == loop.PhaseDone:
		fmt.Fprintf(w, "\nResult: %s\n", tui.Outcome(st))
		if st.ChatResponse != "" {
			fmt.Fprintf(w, "\nResponse:\n%s\n", indent(st.ChatResponse))
		}
	}
}

// printHistory lists the completed refinements of a session.
func printHistory(w io.Writer, st *loop.State) {
	if len(st.History) == 0 {
		return
	}
	fmt.Fprintln(w, "\nHistory:")
	for _, t := range st.History {
		answer := t.Choice
		if t.Feedback != "" {
			if answer != "" {
				answer += "; "
			}
			answer += t.Feedback
		}
		status := ""
		if t.Failed {
			status = "  [rewrite failed]"
		}
		fmt.Fprintf(w, "  #%d  %3d/100  %-13s  %s%s\n", t.Iteration, t.Score, t.Mode, answer, status)
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ")
}
