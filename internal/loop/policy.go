package loop

import "fmt"

// PolicyKind selects how the judge branches.
type PolicyKind string

const (
	// PolicySingleThreshold scores and offers four options in one call.
	PolicySingleThreshold PolicyKind = "single-threshold"
	// PolicyTwoTier scores first, then asks for guidance or a question.
	PolicyTwoTier PolicyKind = "two-tier"
)

// CapOn names the counter the policy cap applies to.
type CapOn string

const (
	CapOnIterations CapOn = "iterations"
	CapOnQuestions  CapOn = "questions"
)

// Policy holds the thresholds and caps of a session. It is stored with the
// session so a resumed session keeps the policy it started with.
type Policy struct {
	Kind              PolicyKind `json:"kind" yaml:"kind"`
	GoodScore         int        `json:"good_score" yaml:"good_score"`
	LowScore          int        `json:"low_score,omitempty" yaml:"low_score"`
	Cap               int        `json:"cap" yaml:"cap"`
	CapOn             CapOn      `json:"cap_on" yaml:"cap_on"`
	SafetyCap         int        `json:"safety_cap,omitempty" yaml:"safety_cap"`
	AllowCustomChoice bool       `json:"allow_custom_choice" yaml:"allow_custom_choice"`
}

// SingleThreshold returns the 80-point, three-iteration policy.
func SingleThreshold() Policy {
	return Policy{
		Kind:              PolicySingleThreshold,
		GoodScore:         80,
		Cap:               3,
		CapOn:             CapOnIterations,
		AllowCustomChoice: true,
	}
}

// TwoTier returns the 90/60-point, five-question policy. SafetyCap bounds
// the number of judge passes when the judge keeps asking for detail.
func TwoTier() Policy {
	return Policy{
		Kind:              PolicyTwoTier,
		GoodScore:         90,
		LowScore:          60,
		Cap:               5,
		CapOn:             CapOnQuestions,
		SafetyCap:         10,
		AllowCustomChoice: true,
	}
}

// PolicyByName returns the preset for kind.
func PolicyByName(kind string) (Policy, error) {
	switch PolicyKind(kind) {
	case PolicySingleThreshold:
		return SingleThreshold(), nil
	case PolicyTwoTier, "":
		return TwoTier(), nil
	default:
		return Policy{}, fmt.Errorf("unknown policy %q (valid: %s, %s)", kind, PolicySingleThreshold, PolicyTwoTier)
	}
}

// Validate checks that the thresholds are consistent.
func (p Policy) Validate() error {
	switch p.Kind {
	case PolicySingleThreshold, PolicyTwoTier:
	default:
		return fmt.Errorf("policy: unknown kind %q", p.Kind)
	}
	if p.GoodScore < 1 || p.GoodScore > 100 {
		return fmt.Errorf("policy: good_score must be in 1..100, got %d", p.GoodScore)
	}
	if p.Kind == PolicyTwoTier && (p.LowScore < 0 || p.LowScore >= p.GoodScore) {
		return fmt.Errorf("policy: low_score must be in 0..good_score-1, got %d", p.LowScore)
	}
	if p.Cap < 1 {
		return fmt.Errorf("policy: cap must be positive, got %d", p.Cap)
	}
	if p.CapOn != CapOnIterations && p.CapOn != CapOnQuestions {
		return fmt.Errorf("policy: cap_on must be %q or %q, got %q", CapOnIterations, CapOnQuestions, p.CapOn)
	}
	if p.SafetyCap < 0 {
		return fmt.Errorf("policy: safety_cap must not be negative, got %d", p.SafetyCap)
	}
	return nil
}
