package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/berth-dev/hone/internal/loop"
	"github.com/berth-dev/hone/prompts"
)

// Client implements loop.Capability by rendering the embedded prompt
// templates and parsing the generator's JSON replies.
type Client struct {
	gen        Generator
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	templates  map[string]*template.Template
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every generator call. Zero means no extra bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets the number of extra attempts after a failed call.
func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the wait between attempts; it grows linearly.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient wraps gen. Templates are embedded at compile time, so a parse
// failure is a bug and panics.
func NewClient(gen Generator, opts ...Option) *Client {
	c := &Client{
		gen:     gen,
		backoff: time.Second,
		logger:  slog.Default(),
		templates: map[string]*template.Template{
			"evaluate": template.Must(template.New("evaluate").Parse(prompts.EvaluateTemplate)),
			"score":    template.Must(template.New("score").Parse(prompts.ScoreTemplate)),
			"guidance": template.Must(template.New("guidance").Parse(prompts.GuidanceTemplate)),
			"question": template.Must(template.New("question").Parse(prompts.QuestionTemplate)),
			"rewrite":  template.Must(template.New("rewrite").Parse(prompts.RewriteTemplate)),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate implements loop.Capability.
func (c *Client) Evaluate(ctx context.Context, prompt string) (loop.Evaluation, error) {
	var eval loop.Evaluation
	if err := c.callJSON(ctx, "evaluate", promptData{Prompt: prompt}, &eval); err != nil {
		return loop.Evaluation{}, err
	}
	return eval, nil
}

// Score implements loop.Capability.
func (c *Client) Score(ctx context.Context, prompt string) (int, error) {
	var out struct {
		Score *int `json:"score"`
	}
	if err := c.callJSON(ctx, "score", promptData{Prompt: prompt}, &out); err != nil {
		return 0, err
	}
	if out.Score == nil {
		return 0, fmt.Errorf("score: missing score field")
	}
	return *out.Score, nil
}

// Guidance implements loop.Capability.
func (c *Client) Guidance(ctx context.Context, prompt string) (string, error) {
	var out struct {
		Guidance string `json:"guidance"`
	}
	if err := c.callJSON(ctx, "guidance", promptData{Prompt: prompt}, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Guidance), nil
}

// Question implements loop.Capability.
func (c *Client) Question(ctx context.Context, prompt string) (loop.Question, error) {
	var q loop.Question
	if err := c.callJSON(ctx, "question", promptData{Prompt: prompt}, &q); err != nil {
		return loop.Question{}, err
	}
	return q, nil
}

// Rewrite implements loop.Capability.
func (c *Client) Rewrite(ctx context.Context, req loop.RewriteRequest) (string, error) {
	text, err := c.render("rewrite", promptData{
		Prompt:   req.Prompt,
		Guidance: req.Guidance,
		Question: req.Question,
		Choice:   req.Choice,
		Feedback: req.Feedback,
	})
	if err != nil {
		return "", err
	}

	var out string
	err = c.retry(ctx, "rewrite", func(ctx context.Context) error {
		raw, err := c.gen.Generate(ctx, text)
		if err != nil {
			return err
		}
		out = cleanTextOutput(raw)
		if out == "" {
			return fmt.Errorf("empty rewrite")
		}
		return nil
	})
	return out, err
}

// Chat implements loop.Capability. The prompt is sent as-is.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	var out string
	err := c.retry(ctx, "chat", func(ctx context.Context) error {
		raw, err := c.gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(raw)
		if out == "" {
			return fmt.Errorf("empty chat response")
		}
		return nil
	})
	return out, err
}

// promptData holds the template data for every capability prompt.
type promptData struct {
	Prompt   string
	Guidance string
	Question string
	Choice   string
	Feedback string
}

func (c *Client) render(name string, data promptData) (string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

// callJSON renders the named template, generates, and decodes the reply
// into out. Unparseable replies count as failed attempts.
func (c *Client) callJSON(ctx context.Context, name string, data promptData, out any) error {
	text, err := c.render(name, data)
	if err != nil {
		return err
	}

	return c.retry(ctx, name, func(ctx context.Context) error {
		raw, err := c.gen.Generate(ctx, text)
		if err != nil {
			return err
		}
		cleaned := cleanJSONOutput(raw)
		if err := json.Unmarshal([]byte(cleaned), out); err != nil {
			return fmt.Errorf("parsing %s response: %w", name, err)
		}
		return nil
	})
}

// retry runs fn up to 1+maxRetries times. Context errors stop immediately.
func (c *Client) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		callCtx, cancel := c.callContext(ctx)
		start := time.Now()
		err := fn(callCtx)
		cancel()

		if err == nil {
			c.logger.Debug("capability call succeeded",
				"op", op, "provider", c.gen.Name(), "attempt", attempt,
				"duration_ms", time.Since(start).Milliseconds())
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		lastErr = err
		c.logger.Warn("capability call failed",
			"op", op, "provider", c.gen.Name(), "attempt", attempt, "error", err)

		if attempt <= c.maxRetries && c.backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
	}
	return fmt.Errorf("%s via %s failed after %d attempt(s): %w", op, c.gen.Name(), c.maxRetries+1, lastErr)
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}
