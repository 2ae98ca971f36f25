package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	events := []LogEvent{
		{Event: EventSessionCreated, SessionID: "a", Prompt: "write an essay"},
		{Event: EventJudged, SessionID: "a", Score: 45, Mode: "needs-detail", Iteration: 1},
		{Event: EventSessionCreated, SessionID: "b"},
	}
	for _, e := range events {
		if err := l.Append(e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	all, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ReadAll returned %d events, want 3", len(all))
	}
	if all[1].Score != 45 || all[1].Mode != "needs-detail" {
		t.Errorf("event[1] = %+v", all[1])
	}
	if all[0].Time.IsZero() {
		t.Error("Time should be set automatically")
	}

	forA, err := l.ForSession("a")
	if err != nil {
		t.Fatalf("ForSession failed: %v", err)
	}
	if len(forA) != 2 {
		t.Errorf("ForSession(a) returned %d events, want 2", len(forA))
	}
}

func TestReadAllMissingFile(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	events, err := l.ReadAll()
	if err != nil {
		t.Errorf("ReadAll returned error for missing file: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("ReadAll returned %d events, want 0", len(events))
	}
}

func TestReadAllCorruptedLine(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hone", "log.jsonl"), []byte("{not json}\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := l.ReadAll(); err == nil {
		t.Error("ReadAll should fail on a corrupted line")
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	if err := l.Append(LogEvent{Event: EventChat}); err != nil {
		t.Errorf("nil Logger Append returned %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewDiagnosticWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := NewDiagnostic(dir, "debug")
	if err != nil {
		t.Fatalf("NewDiagnostic failed: %v", err)
	}
	logger.Debug("hello", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".hone", "debug.log"))
	if err != nil {
		t.Fatalf("reading debug.log: %v", err)
	}
	if len(data) == 0 {
		t.Error("debug.log should not be empty")
	}
}
