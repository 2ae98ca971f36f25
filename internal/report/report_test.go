package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/berth-dev/hone/internal/log"
	"github.com/berth-dev/hone/internal/loop"
)

func doneState() *loop.State {
	st := loop.NewState("s1", "write an essay", loop.TwoTier())
	st.Phase = loop.PhaseDone
	st.Mode = loop.ModeDone
	st.Score = 93
	st.CurrentPrompt = "write a 500-word essay on rivers for data engineers"
	st.QuestionCount = 1
	st.IterationCount = 2
	st.History = []loop.Turn{
		{Iteration: 1, Score: 40, Mode: loop.ModeNeedsDetail, Feedback: "about rivers"},
		{Iteration: 2, Score: 75, Mode: loop.ModeNeedsChoice, Question: "Who is it for?", Choice: "Data engineers"},
	}
	return st
}

func TestGenerate(t *testing.T) {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	events := []log.LogEvent{
		{Time: start, Event: log.EventSessionCreated, SessionID: "s1"},
		{Time: start.Add(30 * time.Second), Event: log.EventCapabilityFailed, SessionID: "s1", Reason: "judge"},
		{Time: start.Add(95 * time.Second), Event: log.EventCompleted, SessionID: "s1"},
	}
	st := doneState()
	st.History[0].Failed = true

	r := Generate(st, events)
	if r.Outcome != "accepted" {
		t.Errorf("Outcome = %q, want accepted", r.Outcome)
	}
	if r.Failures != 2 {
		t.Errorf("Failures = %d, want 2", r.Failures)
	}
	if r.Duration != 95*time.Second {
		t.Errorf("Duration = %v, want 95s", r.Duration)
	}

	text := FormatReport(r)
	for _, want := range []string{
		"# Hone Session s1",
		"- Score:      93/100",
		"- Questions:  1/5",
		"- Duration:   1m 35s",
		`2. score 75, needs-choice: "Who is it for?" -> "Data engineers"`,
		"> write a 500-word essay on rivers for data engineers",
		"[rewrite failed, prompt kept]",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestGenerateInProgressWithoutEvents(t *testing.T) {
	st := loop.NewState("s2", "p", loop.SingleThreshold())
	st.Phase = loop.PhaseSuspended
	r := Generate(st, nil)
	if r.Outcome != "in progress (suspended)" {
		t.Errorf("Outcome = %q", r.Outcome)
	}
	if r.Duration != 0 {
		t.Errorf("Duration = %v, want 0", r.Duration)
	}
	if !strings.Contains(FormatReport(r), "- Iterations: 0/3") {
		t.Errorf("single-threshold report should count iterations:\n%s", FormatReport(r))
	}
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := WriteReport(dir, Generate(doneState(), nil))
	if err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	if path != filepath.Join(dir, "s1.md") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Hone Session s1") {
		t.Errorf("unexpected content:\n%s", data)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "< 1s"},
		{42 * time.Second, "42s"},
		{5*time.Minute + 32*time.Second, "5m 32s"},
		{time.Hour + 12*time.Minute + 5*time.Second, "1h 12m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
