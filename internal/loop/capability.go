package loop

import "context"

// Evaluation is the single-threshold verdict: a score and four critique
// options in one call.
type Evaluation struct {
	Score   int      `json:"score"`
	Options []string `json:"options"`
}

// Question is a multiple-choice question used in needs-choice mode.
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// RewriteRequest carries the prompt and the caller's answer to the rewriter.
type RewriteRequest struct {
	Prompt   string
	Mode     Mode
	Guidance string
	Question string
	Choice   string
	Feedback string
}

// Capability is the external text-generation service. Implementations must
// honour ctx cancellation; any error is treated as recoverable by the steps.
type Capability interface {
	Evaluate(ctx context.Context, prompt string) (Evaluation, error)
	Score(ctx context.Context, prompt string) (int, error)
	Guidance(ctx context.Context, prompt string) (string, error)
	Question(ctx context.Context, prompt string) (Question, error)
	Rewrite(ctx context.Context, req RewriteRequest) (string, error)
	Chat(ctx context.Context, prompt string) (string, error)
}
