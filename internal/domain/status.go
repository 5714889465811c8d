package domain

import "fmt"

// Status is the lifecycle state of a task.
type Status string

// Task statuses.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled}

// transitions is the lifecycle graph. Completed and Cancelled have no
// outgoing edges. Slices are kept in lifecycle order so that
// AllowedTransitions is deterministic.
var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress},
	StatusInProgress: {StatusOpen, StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ParseStatus converts s to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", NewValidationError("status", fmt.Sprintf("%q is not a valid status", s), nil)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
// A status never transitions to itself.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable in one step from s.
// The returned slice is a copy and is never nil.
func AllowedTransitions(s Status) []Status {
	allowed := make([]Status, len(transitions[s]))
	copy(allowed, transitions[s])
	return allowed
}
