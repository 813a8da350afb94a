package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"holiday/holiday"
)

// ErrInterrupted is wrapped in the StepError of a transition stopped by a
// shutdown signal.
var ErrInterrupted = errors.New("transition interrupted")

type Status string

const (
	StatusPerformed Status = "performed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusIgnored   Status = "ignored" // failed, but the step is non-fatal
)

// StepResult is the outcome of one adapter operation on one resource.
type StepResult struct {
	Step     string
	Resource string
	Status   Status
	Err      error
	Duration time.Duration
}

// StepError names the step and resource a transition stopped at.
type StepError struct {
	Step     string
	Resource string
	Err      error
}

func (e *StepError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Step, e.Resource, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Report describes one transition. It is returned even when the transition
// fails so callers can tell which steps already took effect.
type Report struct {
	SagaID         string
	Mode           holiday.Mode
	AlreadyInState bool
	Interrupted    bool
	Steps          []StepResult
}

// Changed reports whether any step mutated infrastructure.
func (r *Report) Changed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusPerformed {
			return true
		}
	}
	return false
}

// LastStep is the name of the last step that ran, or "" if none did.
func (r *Report) LastStep() string {
	if len(r.Steps) == 0 {
		return ""
	}
	return r.Steps[len(r.Steps)-1].Step
}

func (r *Report) count(status Status) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}

// Summary is the one-line confirmation shown to operators.
func (r *Report) Summary() string {
	if r.AlreadyInState {
		if r.Mode == holiday.Vacation {
			return "already on vacation"
		}
		return "already working"
	}
	state := "back at work"
	if r.Mode == holiday.Vacation {
		state = "on vacation"
	}
	if !r.Changed() {
		return fmt.Sprintf("%s (no changes needed)", state)
	}
	return fmt.Sprintf("%s (%d changed, %d unchanged)", state, r.count(StatusPerformed), r.count(StatusSkipped))
}
