// Package agent defines the Agent domain entity.
package agent

import (
	"fmt"

	"github.com/Strob0t/MissionDeck/internal/domain"
)

// Status represents the current state of an agent.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusWorking  Status = "working"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// CoordinatorName identifies the distinguished chat-handling agent.
// The coordinator carries no tools and is never assigned mission tasks.
const CoordinatorName = "Coordinator"

// AxisLabels describe the two steering axes for the UI.
type AxisLabels struct {
	XMin string `json:"xMin"`
	XMax string `json:"xMax"`
	YMin string `json:"yMin"`
	YMax string `json:"yMax"`
}

// Position is the agent's location on the mission canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Agent represents a named worker with a behavioral configuration.
// SteeringX (autonomy) and SteeringY (speed vs quality) are continuous
// values in [0,1]; LastAppliedSteeringX/Y hold their values at the time
// the most recent run started, so the UI can flag pending changes.
type Agent struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	Status               Status      `json:"status"`
	Position             Position    `json:"position"`
	SteeringX            float64     `json:"steeringX"`
	SteeringY            float64     `json:"steeringY"`
	LastAppliedSteeringX *float64    `json:"lastAppliedSteeringX,omitempty"`
	LastAppliedSteeringY *float64    `json:"lastAppliedSteeringY,omitempty"`
	Tools                []string    `json:"tools"`
	EnabledTools         []string    `json:"enabledTools"`
	TokenCount           int         `json:"tokenCount"`
	CostSpent            float64     `json:"costSpent"`
	CurrentTaskID        string      `json:"currentTaskId,omitempty"`
	AxisLabels           *AxisLabels `json:"axisLabels,omitempty"`
}

// IsCoordinator reports whether this is the distinguished chat agent.
func (a *Agent) IsCoordinator() bool {
	return a.Name == CoordinatorName
}

// ToolEnabled reports whether the named tool is in the enabled subset.
func (a *Agent) ToolEnabled(tool string) bool {
	for _, t := range a.EnabledTools {
		if t == tool {
			return true
		}
	}
	return false
}

// Validate checks invariants on a new or updated agent.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: agent name is required", domain.ErrValidation)
	}
	if a.SteeringX < 0 || a.SteeringX > 1 {
		return fmt.Errorf("%w: steeringX must be in [0,1]", domain.ErrValidation)
	}
	if a.SteeringY < 0 || a.SteeringY > 1 {
		return fmt.Errorf("%w: steeringY must be in [0,1]", domain.ErrValidation)
	}
	switch a.Status {
	case StatusIdle, StatusWorking, StatusComplete, StatusError:
	default:
		return fmt.Errorf("%w: invalid agent status %q", domain.ErrValidation, a.Status)
	}
	return nil
}
