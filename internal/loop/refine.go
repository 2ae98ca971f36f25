package loop

import (
	"context"
	"strings"
)

// Refine rewrites the prompt of a copy of s using the consumed patch fields.
// On provider failure the prompt is left untouched; either way the patch is
// cleared and a Turn recorded. The only returned error is ctx's own.
func Refine(ctx context.Context, c Capability, s *State) (*State, error) {
	req := RewriteRequest{
		Prompt:   s.CurrentPrompt,
		Mode:     s.Mode,
		Guidance: s.Guidance,
	}
	switch s.Mode {
	case ModeNeedsChoice:
		req.Question = s.Question
		req.Choice = s.UserChoice
		req.Feedback = s.UserFeedback
	default:
		req.Feedback = s.UserFeedback
	}

	rewritten, err := c.Rewrite(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}

	next := s.Clone()
	turn := Turn{
		Iteration:    s.IterationCount,
		Score:        s.Score,
		Mode:         s.Mode,
		Question:     s.Question,
		Choice:       s.UserChoice,
		Feedback:     s.UserFeedback,
		PromptBefore: s.CurrentPrompt,
	}

	rewritten = strings.TrimSpace(rewritten)
	switch {
	case err != nil:
		next.LastError = (&CapabilityError{Op: "rewrite", Err: err}).Error()
		turn.Failed = true
	case rewritten == "":
		next.LastError = "rewrite: empty result"
		turn.Failed = true
	default:
		next.CurrentPrompt = rewritten
		next.LastError = ""
	}
	turn.PromptAfter = next.CurrentPrompt

	next.UserChoice = ""
	next.UserFeedback = ""
	next.History = append(next.History, turn)
	return next, nil
}
