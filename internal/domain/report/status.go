// internal/domain/report/status.go
package report

import (
	"errors"
	"fmt"
)

// Status is the administrative handling state of a report.
type Status string

const (
	StatusUnhandled  Status = "unhandled" // Initial state of every report
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved" // Terminal
	StatusRejected   Status = "rejected" // Terminal
)

// transitions lists the states reachable from each state through a normal advance.
// Terminal states have no entry.
var transitions = map[Status][]Status{
	StatusUnhandled:  {StatusInProgress, StatusResolved, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
}

// ErrIllegalTransition is matched by every TransitionError.
var ErrIllegalTransition = errors.New("illegal report status transition")

// TransitionError reports an advance the lifecycle does not allow.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal report status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusUnhandled, StatusInProgress, StatusResolved, StatusRejected}
}

func (s Status) Valid() bool {
	switch s {
	case StatusUnhandled, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further advance is modelled from s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanAdvanceTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanAdvanceTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckAdvance returns a *TransitionError when s cannot move to next.
func (s Status) CheckAdvance(next Status) error {
	if !s.CanAdvanceTo(next) {
		return &TransitionError{From: s, To: next}
	}
	return nil
}
