package loop

// Decision is the router's verdict after a judge pass.
type Decision string

const (
	DecisionTerminal Decision = "terminal"
	DecisionSuspend  Decision = "suspend"
)

// Route decides whether the session ends or waits for caller input. The
// goodness check runs before the cap checks; both end the session.
func Route(s *State) Decision {
	if s.IsGood() {
		return DecisionTerminal
	}
	if s.CapCounter() >= s.Policy.Cap {
		return DecisionTerminal
	}
	if s.Policy.SafetyCap > 0 && s.IterationCount >= s.Policy.SafetyCap {
		return DecisionTerminal
	}
	return DecisionSuspend
}
