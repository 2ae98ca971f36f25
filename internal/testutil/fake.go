package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/berth-dev/hone/internal/loop"
)

// ErrFake is the error returned by FakeCapability when a call is set to fail.
var ErrFake = errors.New("fake provider unavailable")

// FakeCapability is a scripted loop.Capability. Scores are consumed in
// order; the last one repeats once the script runs out.
type FakeCapability struct {
	mu sync.Mutex

	Scores       []int
	Options      []string
	GuidanceText string
	QuestionText string
	ChatText     string

	// Per-call failures. A nil entry means the call succeeds.
	EvaluateErr error
	ScoreErr    error
	GuidanceErr error
	QuestionErr error
	RewriteErr  error
	ChatErr     error

	// Block makes every call wait for ctx to end before returning its error.
	Block bool

	// RewriteFunc overrides the default rewrite, which appends the answer.
	RewriteFunc func(loop.RewriteRequest) string

	Calls    map[string]int
	Rewrites []loop.RewriteRequest
	next     int
}

// NewFakeCapability returns a fake that yields scores in order.
func NewFakeCapability(scores ...int) *FakeCapability {
	return &FakeCapability{
		Scores:       scores,
		Options:      Options(),
		GuidanceText: "Say what the essay is about and how long it should be.",
		QuestionText: "What should the prompt clarify first?",
		ChatText:     "Here is your answer.",
		Calls:        make(map[string]int),
	}
}

// CallCount returns how many times op was invoked.
func (f *FakeCapability) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *FakeCapability) record(ctx context.Context, op string) error {
	f.mu.Lock()
	if f.Calls == nil {
		f.Calls = make(map[string]int)
	}
	f.Calls[op]++
	block := f.Block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *FakeCapability) nextScore() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Scores) == 0 {
		return 0
	}
	idx := f.next
	if idx >= len(f.Scores) {
		idx = len(f.Scores) - 1
	}
	f.next++
	return f.Scores[idx]
}

// Evaluate implements loop.Capability.
func (f *FakeCapability) Evaluate(ctx context.Context, prompt string) (loop.Evaluation, error) {
	if err := f.record(ctx, "evaluate"); err != nil {
		return loop.Evaluation{}, err
	}
	if f.EvaluateErr != nil {
		return loop.Evaluation{}, f.EvaluateErr
	}
	return loop.Evaluation{Score: f.nextScore(), Options: append([]string(nil), f.Options...)}, nil
}

// Score implements loop.Capability.
func (f *FakeCapability) Score(ctx context.Context, prompt string) (int, error) {
	if err := f.record(ctx, "score"); err != nil {
		return 0, err
	}
	if f.ScoreErr != nil {
		return 0, f.ScoreErr
	}
	return f.nextScore(), nil
}

// Guidance implements loop.Capability.
func (f *FakeCapability) Guidance(ctx context.Context, prompt string) (string, error) {
	if err := f.record(ctx, "guidance"); err != nil {
		return "", err
	}
	if f.GuidanceErr != nil {
		return "", f.GuidanceErr
	}
	return f.GuidanceText, nil
}

// Question implements loop.Capability.
func (f *FakeCapability) Question(ctx context.Context, prompt string) (loop.Question, error) {
	if err := f.record(ctx, "question"); err != nil {
		return loop.Question{}, err
	}
	if f.QuestionErr != nil {
		return loop.Question{}, f.QuestionErr
	}
	return loop.Question{Text: f.QuestionText, Options: append([]string(nil), f.Options...)}, nil
}

// Rewrite implements loop.Capability.
func (f *FakeCapability) Rewrite(ctx context.Context, req loop.RewriteRequest) (string, error) {
	if err := f.record(ctx, "rewrite"); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.Rewrites = append(f.Rewrites, req)
	fn := f.RewriteFunc
	f.mu.Unlock()

	if f.RewriteErr != nil {
		return "", f.RewriteErr
	}
	if fn != nil {
		return fn(req), nil
	}

	parts := []string{req.Prompt}
	if req.Choice != "" {
		parts = append(parts, req.Choice)
	}
	if req.Feedback != "" {
		parts = append(parts, req.Feedback)
	}
	return strings.Join(parts, ", "), nil
}

// Chat implements loop.Capability.
func (f *FakeCapability) Chat(ctx context.Context, prompt string) (string, error) {
	if err := f.record(ctx, "chat"); err != nil {
		return "", err
	}
	if f.ChatErr != nil {
		return "", f.ChatErr
	}
	return f.ChatText, nil
}
