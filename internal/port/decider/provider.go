// Package decider defines the ports for the external generative-language model.
package decider

import (
	"context"

	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/decision"
	"github.com/Strob0t/MissionDeck/internal/domain/task"
)

// Provider produces a single structured decision for an agent's current
// iteration. Malformed model output must be degraded to a safe complete
// decision inside the implementation; only transport-level call failures
// surface as errors.
type Provider interface {
	Decide(ctx context.Context, ag *agent.Agent, t *task.Task, missionContext string, previousResults []string) (decision.Decision, decision.Usage, error)
}

// AgentTemplate is a planner-produced agent before ids are assigned.
type AgentTemplate struct {
	Name        string
	Description string
	Tools       []string
	SteeringX   float64
	SteeringY   float64
	AxisLabels  *agent.AxisLabels
}

// TaskTemplate is a planner-produced task bound to an agent by index.
type TaskTemplate struct {
	Goal            string
	SuccessCriteria string
	Inputs          []string
	AgentIndex      int
}

// Plan is the result of decomposing a user goal.
type Plan struct {
	Agents []AgentTemplate
	Tasks  []TaskTemplate
}

// Planner decomposes a free-text goal into agent and task templates.
// Implementations may fail; the planning service owns the fallback.
type Planner interface {
	DecomposeGoal(ctx context.Context, goal string) (*Plan, error)
}
