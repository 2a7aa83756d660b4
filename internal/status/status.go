// Package status defines the job lifecycle state machine.
//
// Main path:
//
//	new ──► approved ──► emailed ──► pending ──► applied ──► interview ──► offer
//
// new may also go to filtered_out or needs_review; needs_review loops back to
// new, filtered_out or approved; emailed may skip straight to applied;
// pending, applied and interview may each fall to rejected. rejected and
// offer are terminal states.
package status

import "fmt"

// Status is a job record's lifecycle state.
type Status string

const (
	New         Status = "new"
	FilteredOut Status = "filtered_out"
	Approved    Status = "approved"
	Emailed     Status = "emailed"
	NeedsReview Status = "needs_review"
	Pending     Status = "pending"
	Applied     Status = "applied"
	Interview   Status = "interview"
	Rejected    Status = "rejected"
	Offer       Status = "offer"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	New:         {FilteredOut, Approved, NeedsReview},
	FilteredOut: {NeedsReview},
	Approved:    {Emailed, NeedsReview},
	Emailed:     {Pending, Applied},
	NeedsReview: {New, FilteredOut, Approved},
	Pending:     {Applied, Rejected},
	Applied:     {Interview, Rejected},
	Interview:   {Offer, Rejected},
	// rejected and offer are terminal — no outgoing transitions
}

// All returns every defined status.
func All() []Status {
	return []Status{
		New, FilteredOut, Approved, Emailed, NeedsReview,
		Pending, Applied, Interview, Rejected, Offer,
	}
}

// CoreStates returns the states the pipeline itself writes. The remaining
// states are reachable only through user actions.
func CoreStates() []Status {
	return []Status{New, FilteredOut, Approved, Emailed, NeedsReview}
}

// Parse converts a raw string to a Status, returning an error for unknown
// values.
func Parse(s string) (Status, error) {
	st := Status(s)
	for _, known := range All() {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// TransitionError reports an attempted illegal status transition. It is an
// invariant violation: callers must not swallow it or clamp the write.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s → %s", e.From, e.To)
}

// CanTransition returns true when moving from → to is permitted.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Check validates from → to, returning a *TransitionError when the pair is
// not in the transition table.
func Check(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Terminal returns true when the status has no outgoing transitions.
func Terminal(s Status) bool {
	return len(validTransitions[s]) == 0
}

// Targets returns the legal transition targets from s, in table order.
func Targets(s Status) []Status {
	return validTransitions[s]
}
