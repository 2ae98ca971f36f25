// Package loop implements the prompt refinement steps: judging a prompt,
// routing on the verdict, validating the caller's answer and rewriting the
// prompt. Steps are pure with respect to storage; the orchestrator owns
// persistence and sequencing.
package loop

import "time"

// Mode is the refinement mode chosen by the judge.
type Mode string

const (
	ModeNeedsDetail Mode = "needs-detail"
	ModeNeedsChoice Mode = "needs-choice"
	ModeDone        Mode = "done"
)

// Phase is the driver state of a session.
type Phase string

const (
	PhaseJudging   Phase = "judging"
	PhaseSuspended Phase = "suspended"
	PhaseRefining  Phase = "refining"
	PhaseDone      Phase = "done"
)

// OptionCount is the number of options a needs-choice question carries.
const OptionCount = 4

// State is the record threaded through every step of a session. It is plain
// data so it can be checkpointed between suspend and resume.
type State struct {
	ID             string    `json:"id"`
	InitialPrompt  string    `json:"initial_prompt"`
	CurrentPrompt  string    `json:"current_prompt"`
	Score          int       `json:"score"`
	Mode           Mode      `json:"mode,omitempty"`
	Guidance       string    `json:"guidance,omitempty"`
	Question       string    `json:"question,omitempty"`
	Options        []string  `json:"options,omitempty"`
	UserChoice     string    `json:"user_choice,omitempty"`
	UserFeedback   string    `json:"user_feedback,omitempty"`
	IterationCount int       `json:"iteration_count"`
	QuestionCount  int       `json:"question_count"`
	Phase          Phase     `json:"phase"`
	Policy         Policy    `json:"policy"`
	LastError      string    `json:"last_error,omitempty"`
	History        []Turn    `json:"history,omitempty"`
	ChatResponse   string    `json:"chat_response,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Turn records one completed refinement.
type Turn struct {
	Iteration    int    `json:"iteration"`
	Score        int    `json:"score"`
	Mode         Mode   `json:"mode"`
	Question     string `json:"question,omitempty"`
	Choice       string `json:"choice,omitempty"`
	Feedback     string `json:"feedback,omitempty"`
	PromptBefore string `json:"prompt_before"`
	PromptAfter  string `json:"prompt_after"`
	Failed       bool   `json:"failed,omitempty"`
}

// NewState returns a fresh session state ready for its first judge pass.
func NewState(id, prompt string, policy Policy) *State {
	now := time.Now().UTC()
	return &State{
		ID:            id,
		InitialPrompt: prompt,
		CurrentPrompt: prompt,
		Phase:         PhaseJudging,
		Policy:        policy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsGood reports whether the judge accepted the current prompt.
func (s *State) IsGood() bool {
	return s.Mode == ModeDone
}

// Suspended reports whether the session is waiting for caller input.
func (s *State) Suspended() bool {
	return s.Phase == PhaseSuspended
}

// CapCounter returns the counter the policy cap applies to.
func (s *State) CapCounter() int {
	if s.Policy.CapOn == CapOnQuestions {
		return s.QuestionCount
	}
	return s.IterationCount
}

// Clone returns a deep copy so steps never alias the caller's slices.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	if s.Options != nil {
		c.Options = append([]string(nil), s.Options...)
	}
	if s.History != nil {
		c.History = append([]Turn(nil), s.History...)
	}
	return &c
}

// clampScore bounds a provider score to [0,100].
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
