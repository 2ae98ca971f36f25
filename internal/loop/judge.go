package loop

import (
	"context"
	"fmt"
	"strings"
)

// RetryGuidance is shown in place of real guidance when the judge could not
// reach the provider.
const RetryGuidance = "The prompt could not be evaluated. Add any missing detail (goal, audience, format, constraints) and try again."

// SingleThresholdQuestion is the question text paired with the critique
// options of a single-threshold evaluation.
const SingleThresholdQuestion = "Which improvement should the prompt include?"

// Judge scores the current prompt and fills the verdict fields of a copy of
// s. Provider failures are absorbed into a safe default so the loop always
// moves forward; the only returned error is ctx's own, in which case the
// caller must discard the step.
func Judge(ctx context.Context, c Capability, s *State) (*State, error) {
	next := s.Clone()
	next.IterationCount++
	next.Guidance = ""
	next.Question = ""
	next.Options = nil

	var err error
	switch s.Policy.Kind {
	case PolicySingleThreshold:
		err = judgeSingle(ctx, c, next)
	default:
		err = judgeTwoTier(ctx, c, next)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		applyJudgeFallback(next, err)
		return next, nil
	}

	next.LastError = ""
	return next, nil
}

// judgeSingle makes one Evaluate call yielding score and four options.
func judgeSingle(ctx context.Context, c Capability, s *State) error {
	eval, err := c.Evaluate(ctx, s.CurrentPrompt)
	if err != nil {
		return &CapabilityError{Op: "evaluate", Err: err}
	}

	score := clampScore(eval.Score)
	if score >= s.Policy.GoodScore {
		s.Score = score
		s.Mode = ModeDone
		return nil
	}

	options, err := normalizeOptions(eval.Options)
	if err != nil {
		return &CapabilityError{Op: "evaluate", Err: err}
	}

	s.Score = score
	s.Mode = ModeNeedsChoice
	s.Question = SingleThresholdQuestion
	s.Options = options
	s.QuestionCount++
	return nil
}

// judgeTwoTier scores first and only asks for guidance or a question when
// the score is below the good threshold.
func judgeTwoTier(ctx context.Context, c Capability, s *State) error {
	raw, err := c.Score(ctx, s.CurrentPrompt)
	if err != nil {
		return &CapabilityError{Op: "score", Err: err}
	}
	score := clampScore(raw)

	switch {
	case score >= s.Policy.GoodScore:
		s.Score = score
		s.Mode = ModeDone
		return nil

	case score < s.Policy.LowScore:
		guidance, err := c.Guidance(ctx, s.CurrentPrompt)
		if err != nil {
			return &CapabilityError{Op: "guidance", Err: err}
		}
		guidance = strings.TrimSpace(guidance)
		if guidance == "" {
			return &CapabilityError{Op: "guidance", Err: fmt.Errorf("empty guidance")}
		}
		s.Score = score
		s.Mode = ModeNeedsDetail
		s.Guidance = guidance
		return nil

	default:
		q, err := c.Question(ctx, s.CurrentPrompt)
		if err != nil {
			return &CapabilityError{Op: "question", Err: err}
		}
		text := strings.TrimSpace(q.Text)
		if text == "" {
			return &CapabilityError{Op: "question", Err: fmt.Errorf("empty question")}
		}
		options, err := normalizeOptions(q.Options)
		if err != nil {
			return &CapabilityError{Op: "question", Err: err}
		}
		s.Score = score
		s.Mode = ModeNeedsChoice
		s.Question = text
		s.Options = options
		s.QuestionCount++
		return nil
	}
}

// applyJudgeFallback installs the safe verdict used after a failed call.
// Counters already advanced by Judge stay advanced.
func applyJudgeFallback(s *State, err error) {
	s.Score = 0
	s.Mode = ModeNeedsDetail
	s.Guidance = RetryGuidance
	s.Question = ""
	s.Options = nil
	s.LastError = err.Error()
}

// normalizeOptions trims the options and requires exactly OptionCount
// non-empty entries.
func normalizeOptions(options []string) ([]string, error) {
	out := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) != OptionCount {
		return nil, fmt.Errorf("expected %d options, got %d", OptionCount, len(out))
	}
	return out, nil
}
