// Package report builds summaries of finished or in-progress sessions from
// their stored state and the event log.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/berth-dev/hone/internal/log"
	"github.com/berth-dev/hone/internal/loop"
)

// Report holds the aggregated statistics and metadata for one session.
type Report struct {
	SessionID     string
	Policy        loop.PolicyKind
	Phase         loop.Phase
	Outcome       string
	InitialPrompt string
	FinalPrompt   string
	Score         int
	Iterations    int
	Questions     int
	Cap           int
	CapOn         loop.CapOn
	Turns         []loop.Turn
	Failures      int
	Duration      time.Duration
	ChatResponse  string
}

// Generate builds a Report from st and the session's events. events may be
// empty when the event log is disabled; duration is then left at zero.
func Generate(st *loop.State, events []log.LogEvent) *Report {
	r := &Report{
		SessionID:     st.ID,
		Policy:        st.Policy.Kind,
		Phase:         st.Phase,
		Outcome:       outcome(st),
		InitialPrompt: st.InitialPrompt,
		FinalPrompt:   st.CurrentPrompt,
		Score:         st.Score,
		Iterations:    st.IterationCount,
		Questions:     st.QuestionCount,
		Cap:           st.Policy.Cap,
		CapOn:         st.Policy.CapOn,
		Turns:         append([]loop.Turn(nil), st.History...),
		ChatResponse:  st.ChatResponse,
	}

	for _, t := range st.History {
		if t.Failed {
			r.Failures++
		}
	}
	for _, e := range events {
		if e.Event == log.EventCapabilityFailed && e.Reason == "judge" {
			r.Failures++
		}
	}
	r.Duration = computeDuration(events)

	return r
}

func outcome(st *loop.State) string {
	switch {
	case st.Phase != loop.PhaseDone:
		return "in progress (" + string(st.Phase) + ")"
	case st.IsGood():
		return "accepted"
	default:
		return "stopped at cap"
	}
}

// FormatReport produces a human-readable markdown summary.
func FormatReport(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Hone Session %s\n\n", r.SessionID)

	fmt.Fprintf(&b, "- Policy:     %s\n", r.Policy)
	fmt.Fprintf(&b, "- Outcome:    %s\n", r.Outcome)
	fmt.Fprintf(&b, "- Score:      %d/100\n", r.Score)
	counter := r.Iterations
	if r.CapOn == loop.CapOnQuestions {
		counter = r.Questions
	}
	fmt.Fprintf(&b, "- %-11s %d/%d\n", capitalize(string(r.CapOn))+":", counter, r.Cap)
	if r.Failures > 0 {
		fmt.Fprintf(&b, "- Failures:   %d provider call(s)\n", r.Failures)
	}
	if r.Duration > 0 {
		fmt.Fprintf(&b, "- Duration:   %s\n", formatDuration(r.Duration))
	}
	b.WriteString("\n")

	b.WriteString("## Initial prompt\n\n")
	b.WriteString(quote(r.InitialPrompt))
	b.WriteString("\n")

	if len(r.Turns) > 0 {
		b.WriteString("## Refinements\n\n")
		for _, t := range r.Turns {
			fmt.Fprintf(&b, "%d. score %d, %s", t.Iteration, t.Score, t.Mode)
			if t.Question != "" {
				fmt.Fprintf(&b, ": %q -> %q", t.Question, t.Choice)
			}
			if t.Feedback != "" {
				fmt.Fprintf(&b, " (feedback: %s)", t.Feedback)
			}
			if t.Failed {
				b.WriteString(" [rewrite failed, prompt kept]")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Final prompt\n\n")
	b.WriteString(quote(r.FinalPrompt))

	if r.ChatResponse != "" {
		b.WriteString("\n## Response\n\n")
		b.WriteString(strings.TrimSpace(r.ChatResponse))
		b.WriteString("\n")
	}

	return b.String()
}

// WriteReport writes the formatted report to {dir}/{session}.md.
// Creates dir if it does not exist. Returns the written path.
func WriteReport(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	path := filepath.Join(dir, r.SessionID+".md")
	if err := os.WriteFile(path, []byte(FormatReport(r)), 0644); err != nil {
		return "", fmt.Errorf("writing report file: %w", err)
	}

	return path, nil
}

// computeDuration returns the time between the session_created event and
// the last event.
func computeDuration(events []log.LogEvent) time.Duration {
	var start, end time.Time
	for _, e := range events {
		if e.Event == log.EventSessionCreated && start.IsZero() {
			start = e.Time
		}
		if !e.Time.IsZero() {
			end = e.Time
		}
	}

	if start.IsZero() || end.IsZero() {
		return 0
	}
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// formatDuration produces a human-readable duration string such as "5m 32s"
// or "1h 12m 5s". Sub-second durations are shown as "< 1s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func quote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
