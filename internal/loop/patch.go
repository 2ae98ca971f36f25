package loop

import "strings"

// Patch is the only caller input accepted while a session is suspended.
type Patch struct {
	Choice   string `json:"choice,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

// ValidatePatch checks p against the mode the session is suspended in and
// returns the trimmed patch. needs-detail requires feedback; needs-choice
// requires a choice among the offered options, or free text when the policy
// allows custom choices.
func ValidatePatch(s *State, p Patch) (Patch, error) {
	p.Choice = strings.TrimSpace(p.Choice)
	p.Feedback = strings.TrimSpace(p.Feedback)

	switch s.Mode {
	case ModeNeedsDetail:
		if p.Feedback == "" {
			return Patch{}, &PatchError{Mode: s.Mode, Reason: "feedback is required"}
		}
		return p, nil

	case ModeNeedsChoice:
		if len(s.Options) != OptionCount || s.Question == "" {
			return Patch{}, &PatchError{Mode: s.Mode, Reason: "no question is pending"}
		}
		if p.Choice == "" {
			return Patch{}, &PatchError{Mode: s.Mode, Reason: "choice is required"}
		}
		if !s.Policy.AllowCustomChoice && !containsOption(s.Options, p.Choice) {
			return Patch{}, &PatchError{Mode: s.Mode, Reason: "choice must be one of the offered options"}
		}
		return p, nil

	default:
		return Patch{}, &PatchError{Mode: s.Mode, Reason: "session is not awaiting input"}
	}
}

// Apply returns a copy of s carrying the patch fields and nothing else.
func Apply(s *State, p Patch) *State {
	next := s.Clone()
	next.UserChoice = p.Choice
	next.UserFeedback = p.Feedback
	return next
}

func containsOption(options []string, choice string) bool {
	for _, o := range options {
		if o == choice {
			return true
		}
	}
	return false
}
