package capability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berth-dev/hone/internal/config"
	"github.com/berth-dev/hone/internal/log"
	"github.com/berth-dev/hone/internal/loop"
)

func TestCleanJSONOutput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain json", input: `{"score": 70}`, want: `{"score": 70}`},
		{name: "json fence", input: "```json\n{\"score\": 70}\n```", want: `{"score": 70}`},
		{name: "bare fence", input: "```\n{\"score\": 70}\n```", want: `{"score": 70}`},
		{name: "prose around", input: "Sure! {\"score\": 70} Hope that helps.", want: `{"score": 70}`},
		{name: "brace in prose", input: "See {below}: {\"score\": 70}", want: `{"score": 70}`},
		{name: "no json", input: "  nothing here  ", want: "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONOutput(tt.input); got != tt.want {
				t.Errorf("cleanJSONOutput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanTextOutput(t *testing.T) {
	tests := map[string]string{
		"Write a 500 word essay.":               "Write a 500 word essay.",
		"\"Write a 500 word essay.\"":           "Write a 500 word essay.",
		"```\nWrite a 500 word essay.\n```":     "Write a 500 word essay.",
		"```text\nWrite a 500 word essay.\n```": "Write a 500 word essay.",
	}
	for in, want := range tests {
		if got := cleanTextOutput(in); got != want {
			t.Errorf("cleanTextOutput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseClaudeOutput(t *testing.T) {
	got, err := parseClaudeOutput([]byte(`{"type":"result","subtype":"success","result":"{\"score\":88}","is_error":false}`))
	if err != nil {
		t.Fatalf("parseClaudeOutput failed: %v", err)
	}
	if got != `{"score":88}` {
		t.Errorf("result = %q", got)
	}

	bad := [][]byte{
		nil,
		[]byte("not json"),
		[]byte(`{"type":"assistant","result":"x"}`),
		[]byte(`{"type":"result","result":"rate limited","is_error":true}`),
	}
	for _, raw := range bad {
		if _, err := parseClaudeOutput(raw); err == nil {
			t.Errorf("parseClaudeOutput(%q) should fail", raw)
		}
	}
}

// scriptedGenerator returns replies in order and records prompts.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	return "", errors.New("script exhausted")
}

func newTestClient(gen Generator, retries int) *Client {
	return NewClient(gen, WithRetries(retries), WithBackoff(0), WithLogger(log.Discard()))
}

func TestClientEvaluate(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{
		"```json\n{\"score\": 72, \"options\": [\"a\", \"b\", \"c\", \"d\"]}\n```",
	}}
	c := newTestClient(gen, 0)

	eval, err := c.Evaluate(context.Background(), "write an essay")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.Score != 72 || len(eval.Options) != 4 {
		t.Errorf("Evaluate = %+v", eval)
	}
	if !strings.Contains(gen.prompts[0], "write an essay") {
		t.Error("rendered prompt should contain the user's prompt")
	}
}

func TestClientScoreRetriesOnUnparseableReply(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"I think it is decent.", `{"score": 64}`}}
	c := newTestClient(gen, 1)

	score, err := c.Score(context.Background(), "write an essay")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 64 {
		t.Errorf("Score = %d, want 64", score)
	}
	if len(gen.prompts) != 2 {
		t.Errorf("generator called %d times, want 2", len(gen.prompts))
	}
}

func TestClientScoreMissingField(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{`{"rating": 64}`}}
	c := newTestClient(gen, 0)

	if _, err := c.Score(context.Background(), "p"); err == nil {
		t.Error("Score should fail when the score field is missing")
	}
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	boom := errors.New("provider down")
	gen := &scriptedGenerator{errs: []error{boom, boom, boom}}
	c := newTestClient(gen, 2)

	_, err := c.Guidance(context.Background(), "p")
	if !errors.Is(err, boom) {
		t.Fatalf("Guidance error = %v, want wrapping %v", err, boom)
	}
	if len(gen.prompts) != 3 {
		t.Errorf("generator called %d times, want 3", len(gen.prompts))
	}
}

func TestClientQuestionAndRewrite(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{
		`{"question": "Who is the audience?", "options": ["kids", "students", "experts", "general"]}`,
		"\"Write a 500 word essay about dogs for students.\"",
	}}
	c := newTestClient(gen, 0)

	q, err := c.Question(context.Background(), "write an essay about dogs")
	if err != nil {
		t.Fatalf("Question failed: %v", err)
	}
	if q.Text != "Who is the audience?" || len(q.Options) != 4 {
		t.Errorf("Question = %+v", q)
	}

	out, err := c.Rewrite(context.Background(), loop.RewriteRequest{
		Prompt:   "write an essay about dogs",
		Mode:     loop.ModeNeedsChoice,
		Question: q.Text,
		Choice:   "students",
	})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if out != "Write a 500 word essay about dogs for students." {
		t.Errorf("Rewrite = %q", out)
	}
	if !strings.Contains(gen.prompts[1], "Chosen answer: students") {
		t.Errorf("rewrite prompt should carry the choice, got:\n%s", gen.prompts[1])
	}
}

func TestClientStopsOnCancelledContext(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{`{"score": 50}`}}
	c := newTestClient(gen, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Score(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Errorf("Score error = %v, want context.Canceled", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("no generator call should be made with a cancelled context")
	}
}

func TestOllamaGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Stream || req.Model != "llama3" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "  hello  ", Done: true})
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL+"/", "llama3", 5*time.Second)
	out, err := gen.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "hello" {
		t.Errorf("Generate = %q, want %q", out, "hello")
	}
}

func TestOllamaGeneratorErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "missing", 5*time.Second)
	if _, err := gen.Generate(context.Background(), "hi"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Generate error = %v, want a 404 error", err)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "", Done: true})
	}))
	defer empty.Close()

	gen = NewOllamaGenerator(empty.URL, "llama3", 5*time.Second)
	if _, err := gen.Generate(context.Background(), "hi"); err == nil {
		t.Error("Generate should fail on an empty response")
	}
}

func TestClaudeGeneratorRunsCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "claude")
	body := "#!/bin/sh\necho '{\"type\":\"result\",\"result\":\"{\\\"score\\\":91}\",\"is_error\":false}'\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	c := newTestClient(NewClaudeGenerator(script, "sonnet", dir), 0)
	score, err := c.Score(context.Background(), "write an essay")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 91 {
		t.Errorf("Score = %d, want 91", score)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	c, err := New(cfg, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.gen.Name() != "claude" {
		t.Errorf("provider = %q, want claude", c.gen.Name())
	}

	cfg.Provider.Kind = config.ProviderOllama
	c, err = New(cfg, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.gen.Name() != "ollama" {
		t.Errorf("provider = %q, want ollama", c.gen.Name())
	}

	cfg.Provider.Kind = "openai"
	if _, err := New(cfg, t.TempDir(), nil); err == nil {
		t.Error("New should reject an unknown provider")
	}
}
