// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"time"

	"github.com/confkit/confkit/internal/runtime"
	"github.com/confkit/confkit/pkg/types"
)

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskSuccess
	TaskFailed
)

type (
	// TaskStatus is the overall state of a run.
	TaskStatus int

	// TaskResult aggregates the steps of one run. Steps holds only steps
	// that were started, in start order. Canceled is set when the run's
	// context ended before every step was reached.
	TaskResult struct {
		TaskID     string
		Status     TaskStatus
		Canceled   bool
		StartedAt  time.Time
		FinishedAt time.Time
		Duration   time.Duration
		Steps      []*runtime.StepResult
		LogPath    string
	}

	// StepCounts tallies step outcomes.
	StepCounts struct {
		Success int
		Failed  int
		Skipped int
	}
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskSuccess:
		return "success"
	case TaskFailed:
		return "failed"
	default:
		return fmt.Sprintf("TaskStatus(%d)", int(s))
	}
}

func newTaskResult(taskID, logPath string) *TaskResult {
	return &TaskResult{TaskID: taskID, Status: TaskPending, LogPath: logPath}
}

func (r *TaskResult) start() {
	r.Status = TaskRunning
	r.StartedAt = time.Now()
}

// finish sets Success when no step failed and the run was not canceled,
// Failed otherwise.
func (r *TaskResult) finish() {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	if r.Canceled || r.Counts().Failed > 0 {
		r.Status = TaskFailed
	} else {
		r.Status = TaskSuccess
	}
}

// Counts tallies the recorded steps.
func (r *TaskResult) Counts() StepCounts {
	var c StepCounts
	for _, s := range r.Steps {
		switch s.Status {
		case runtime.StepSuccess:
			c.Success++
		case runtime.StepFailed:
			c.Failed++
		case runtime.StepSkipped:
			c.Skipped++
		}
	}
	return c
}

// FailedSteps returns the steps that failed.
func (r *TaskResult) FailedSteps() []*runtime.StepResult {
	var out []*runtime.StepResult
	for _, s := range r.Steps {
		if s.Status == runtime.StepFailed {
			out = append(out, s)
		}
	}
	return out
}

// ExitCode is the process exit code for the run.
func (r *TaskResult) ExitCode() types.ExitCode {
	if r.Status == TaskSuccess {
		return types.ExitCodeSuccess
	}
	return types.ExitCodeFailure
}
