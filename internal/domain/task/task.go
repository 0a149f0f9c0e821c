// Package task defines the Task domain entity.
package task

import (
	"fmt"
	"time"

	"github.com/Strob0t/MissionDeck/internal/domain"
)

// Status represents the current state of a task run.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status ends a run. Blocked is terminal
// for now: no resumption path reopens a blocked task.
func (s Status) Terminal() bool {
	return s == StatusBlocked || s == StatusDone || s == StatusFailed
}

// Task represents a unit of work bound to exactly one agent.
// AssignedAgentID is fixed at creation. IterationCount is bounded by
// MaxIterations; MaxDurationSeconds is an advisory wall-clock cutoff
// checked between iterations.
type Task struct {
	ID                 string     `json:"id"`
	Goal               string     `json:"goal"`
	Status             Status     `json:"status"`
	AssignedAgentID    string     `json:"assignedAgentId"`
	Inputs             []string   `json:"inputs"`
	Outputs            []string   `json:"outputs"`
	SuccessCriteria    string     `json:"successCriteria"`
	IterationCount     int        `json:"iterationCount"`
	MaxIterations      int        `json:"maxIterations"`
	MaxDurationSeconds int        `json:"maxDurationSeconds,omitempty"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	ScheduledStartTime *time.Time `json:"scheduledStartTime,omitempty"`
	RunIntervalMinutes int        `json:"runIntervalMinutes,omitempty"`
	LastRunAt          *time.Time `json:"lastRunAt,omitempty"`
}

// Recurring reports whether the task runs on an interval schedule.
func (t *Task) Recurring() bool {
	return t.RunIntervalMinutes > 0
}

// TimeLimitExceeded reports whether the wall-clock cutoff has passed.
// Always false when no limit is set or the task has not started.
func (t *Task) TimeLimitExceeded(now time.Time) bool {
	if t.MaxDurationSeconds <= 0 || t.StartedAt == nil {
		return false
	}
	return now.Sub(*t.StartedAt) >= time.Duration(t.MaxDurationSeconds)*time.Second
}

// Validate checks invariants on a new task.
func (t *Task) Validate() error {
	if t.Goal == "" {
		return fmt.Errorf("%w: task goal is required", domain.ErrValidation)
	}
	if t.AssignedAgentID == "" {
		return fmt.Errorf("%w: task must be assigned to an agent", domain.ErrValidation)
	}
	if t.MaxIterations < 1 {
		return fmt.Errorf("%w: maxIterations must be >= 1", domain.ErrValidation)
	}
	switch t.Status {
	case StatusPending, StatusActive, StatusBlocked, StatusDone, StatusFailed:
	default:
		return fmt.Errorf("%w: invalid task status %q", domain.ErrValidation, t.Status)
	}
	return nil
}
