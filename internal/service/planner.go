package service

import (
	"context"
	"log/slog"

	otelx "github.com/Strob0t/MissionDeck/internal/adapter/otel"
	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/tool"
	"github.com/Strob0t/MissionDeck/internal/port/decider"
)

// PlannerService turns a free-form goal into a mission plan. Planning
// never fails: when decomposition errors out, a single general-purpose
// agent takes on the verbatim goal.
type PlannerService struct {
	planner decider.Planner
}

// NewPlannerService creates a PlannerService over the given decomposer.
func NewPlannerService(planner decider.Planner) *PlannerService {
	return &PlannerService{planner: planner}
}

// Plan decomposes the goal into agent and task templates.
func (s *PlannerService) Plan(ctx context.Context, goal string) *decider.Plan {
	ctx, span := otelx.StartPlanSpan(ctx)
	defer span.End()

	plan, err := s.planner.DecomposeGoal(ctx, goal)
	if err != nil {
		slog.Warn("goal decomposition failed, using single-agent fallback", "error", err)
		return s.fallbackPlan(goal)
	}
	if plan == nil || len(plan.Agents) == 0 || len(plan.Tasks) == 0 {
		slog.Warn("goal decomposition returned an empty plan, using single-agent fallback")
		return s.fallbackPlan(goal)
	}
	return plan
}

// fallbackPlan is the degenerate one-agent plan used when the model
// cannot produce a usable decomposition.
func (s *PlannerService) fallbackPlan(goal string) *decider.Plan {
	return &decider.Plan{
		Agents: []decider.AgentTemplate{{
			Name:        "General Agent",
			Description: "General-purpose agent handling the request",
			Tools:       append([]string(nil), tool.PlannerVocabulary...),
			SteeringX:   0.5,
			SteeringY:   0.5,
			AxisLabels: &agent.AxisLabels{
				XMin: "Less Autonomous",
				XMax: "More Autonomous",
				YMin: "Prioritize Speed",
				YMax: "Prioritize Quality",
			},
		}},
		Tasks: []decider.TaskTemplate{{
			Goal:            goal,
			AgentIndex:      0,
			SuccessCriteria: "Task completed successfully",
		}},
	}
}
