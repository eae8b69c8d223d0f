// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"time"

	"github.com/confkit/confkit/pkg/types"
)

const (
	StepPending StepStatus = iota
	StepRunning
	StepSuccess
	StepFailed
	StepSkipped
)

type (
	// StepStatus is the lifecycle state of a step.
	StepStatus int

	// StepResult records one step. Status only moves forward:
	// Pending -> Running -> Success | Failed | Skipped.
	StepResult struct {
		Name       string
		Status     StepStatus
		StartedAt  time.Time
		FinishedAt time.Time
		Duration   time.Duration
		ExitCode   types.ExitCode
		// Output is the captured stdout.
		Output string
		// Error describes a failure; empty on success.
		Error string
		// Err is the failure Error was rendered from.
		Err error

		now func() time.Time
	}

	// InvalidTransitionError is returned when a StepResult would leave a
	// terminal state or finish without starting.
	InvalidTransitionError struct {
		Step string
		From StepStatus
		To   StepStatus
	}
)

// NewStepResult returns a Pending result for name.
func NewStepResult(name string) *StepResult {
	return &StepResult{Name: name, Status: StepPending, now: time.Now}
}

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepSuccess:
		return "success"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("StepStatus(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s StepStatus) IsTerminal() bool {
	return s == StepSuccess || s == StepFailed || s == StepSkipped
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("step %q: invalid transition %s -> %s", e.Step, e.From, e.To)
}

// Start moves Pending to Running and stamps StartedAt.
func (r *StepResult) Start() error {
	if r.Status != StepPending {
		return &InvalidTransitionError{Step: r.Name, From: r.Status, To: StepRunning}
	}
	r.Status = StepRunning
	r.StartedAt = r.clock()
	return nil
}

// Succeed finishes a running step with exit code 0.
func (r *StepResult) Succeed(output string) error {
	if err := r.finish(StepSuccess); err != nil {
		return err
	}
	r.ExitCode = types.ExitCodeSuccess
	r.Output = output
	return nil
}

// Fail finishes a running step with cause. A zero code is recorded as a
// generic failure.
func (r *StepResult) Fail(code types.ExitCode, output string, cause error) error {
	if err := r.finish(StepFailed); err != nil {
		return err
	}
	if code.IsSuccess() {
		code = types.ExitCodeFailure
	}
	r.ExitCode = code
	r.Output = output
	r.Err = cause
	if cause != nil {
		r.Error = cause.Error()
	}
	return nil
}

// Skip finishes a pending or running step without running anything.
func (r *StepResult) Skip() error {
	if r.Status == StepPending {
		r.StartedAt = r.clock()
		r.Status = StepRunning
	}
	if err := r.finish(StepSkipped); err != nil {
		return err
	}
	r.ExitCode = types.ExitCodeSuccess
	return nil
}

func (r *StepResult) finish(to StepStatus) error {
	if r.Status != StepRunning {
		return &InvalidTransitionError{Step: r.Name, From: r.Status, To: to}
	}
	r.Status = to
	r.FinishedAt = r.clock()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	return nil
}

func (r *StepResult) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}
