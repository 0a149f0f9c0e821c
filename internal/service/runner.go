package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	otelx "github.com/Strob0t/MissionDeck/internal/adapter/otel"
	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/artifact"
	"github.com/Strob0t/MissionDeck/internal/domain/decision"
	"github.com/Strob0t/MissionDeck/internal/domain/mission"
	"github.com/Strob0t/MissionDeck/internal/domain/task"
	"github.com/Strob0t/MissionDeck/internal/port/decider"
)

// Runner drives one agent through repeated decide/act cycles against one
// task until a terminal condition. Every branch leaves the task in a
// terminal status, or the post-loop accounting forces one: the loop guard
// (iteration budget, active status, time limit) plus the forced done on
// exhaustion guarantee termination.
type Runner struct {
	state    *StateService
	provider decider.Provider
	tools    *ToolExecutor
	metrics  *otelx.Metrics
	now      func() time.Time
}

// NewRunner creates a Runner over the given state, decision provider and
// tool executor. metrics may be nil.
func NewRunner(state *StateService, provider decider.Provider, tools *ToolExecutor, metrics *otelx.Metrics) *Runner {
	return &Runner{
		state:    state,
		provider: provider,
		tools:    tools,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Run executes the full decide/act loop for one agent/task pair. It is a
// no-op if the agent is already working: an agent runs at most one task
// at a time.
func (r *Runner) Run(ctx context.Context, agentID, taskID string) {
	ag, ok := r.state.GetAgent(agentID)
	if !ok {
		slog.Warn("run for unknown agent", "agent_id", agentID)
		return
	}
	if _, ok := r.state.GetTask(taskID); !ok {
		slog.Warn("run for unknown task", "task_id", taskID)
		return
	}

	if !r.state.BeginRun(ctx, agentID, taskID) {
		slog.Info("agent busy, run skipped", "agent", ag.Name)
		return
	}

	ctx, span := otelx.StartRunSpan(ctx, agentID, taskID)
	defer span.End()

	started := r.now()
	r.state.UpdateTask(ctx, taskID, func(t *task.Task) {
		t.Status = task.StatusActive
		t.StartedAt = &started
		t.LastRunAt = &started
	})
	if r.metrics != nil {
		r.metrics.RunsStarted.Add(ctx, 1)
	}

	var previousResults []string

	for {
		t, _ := r.state.GetTask(taskID)
		if t.IterationCount >= t.MaxIterations || t.Status != task.StatusActive || t.TimeLimitExceeded(r.now()) {
			break
		}

		r.state.UpdateTask(ctx, taskID, func(t *task.Task) { t.IterationCount++ })
		t, _ = r.state.GetTask(taskID)
		ag, _ = r.state.GetAgent(agentID)

		r.state.AppendLog(ctx, ag.ID, ag.Name, mission.LogDecision, map[string]any{
			"iteration": t.IterationCount,
			"status":    "thinking",
		})

		d, usage, err := r.provider.Decide(ctx, &ag, &t, r.state.Context(), previousResults)
		if usage.Tokens > 0 {
			r.state.UpdateAgent(ctx, agentID, func(a *agent.Agent) {
				a.TokenCount += usage.Tokens
				a.CostSpent += usage.CostUSD
			})
		}
		if err != nil {
			r.state.AppendLog(ctx, ag.ID, ag.Name, mission.LogError, map[string]any{"error": err.Error()})
			r.state.UpdateTask(ctx, taskID, func(t *task.Task) { t.Status = task.StatusFailed })
			break
		}
		if r.metrics != nil {
			r.metrics.Decisions.Add(ctx, 1)
		}

		r.state.AppendLog(ctx, ag.ID, ag.Name, mission.LogDecision, map[string]any{
			"action": string(d.Action),
			"reason": d.Reason,
			"tool":   d.Tool,
		})

		switch d.Action {
		case decision.ActionUseTool:
			r.runTool(ctx, &ag, taskID, d, &previousResults)
		case decision.ActionCreateArtifact:
			r.createArtifact(ctx, &ag, taskID, d)
		case decision.ActionComplete:
			r.state.AppendMessage(ctx, mission.Message{
				Role:      mission.RoleAgent,
				AgentID:   ag.ID,
				AgentName: ag.Name,
				Content:   messageOr(d.Message, "Task completed."),
			})
			r.state.UpdateTask(ctx, taskID, func(t *task.Task) { t.Status = task.StatusDone })
		case decision.ActionAskUser:
			r.state.AppendMessage(ctx, mission.Message{
				Role:      mission.RoleAgent,
				AgentID:   ag.ID,
				AgentName: ag.Name,
				Content:   messageOr(d.Message, "I need more information to proceed."),
			})
			r.state.UpdateTask(ctx, taskID, func(t *task.Task) { t.Status = task.StatusBlocked })
		}
	}

	r.finish(ctx, agentID, taskID)
}

// runTool executes one use_tool decision and records its result.
func (r *Runner) runTool(ctx context.Context, ag *agent.Agent, taskID string, d decision.Decision, previousResults *[]string) {
	r.state.AppendLog(ctx, ag.ID, ag.Name, mission.LogAction, map[string]any{
		"tool":  d.Tool,
		"input": d.ToolInput,
	})

	toolCtx, span := otelx.StartToolCallSpan(ctx, d.Tool)
	result := r.tools.Execute(toolCtx, d.Tool, d.ToolInput, r.state.Artifacts())
	span.End()
	if r.metrics != nil {
		r.metrics.ToolCall(ctx, d.Tool)
	}

	*previousResults = append(*previousResults, "Tool: "+d.Tool+"\nResult: "+result)
	r.state.UpdateTask(ctx, taskID, func(t *task.Task) { t.Outputs = append(t.Outputs, result) })

	r.state.AppendLog(ctx, ag.ID, ag.Name, mission.LogAction, map[string]any{
		"tool":   d.Tool,
		"result": "completed",
	})
}

// createArtifact stores the decision's artifact, announces it, and ends
// the run: artifact creation is always terminal.
func (r *Runner) createArtifact(ctx context.Context, ag *agent.Agent, taskID string, d decision.Decision) {
	a := &artifact.Artifact{
		ID:        uuid.NewString(),
		Name:      d.ArtifactName,
		Type:      d.ArtifactType,
		Content:   d.ArtifactContent,
		CreatedBy: ag.Name,
		CreatedAt: r.now(),
	}
	r.state.PutArtifact(ctx, a)

	r.state.AppendLog(ctx, ag.ID, ag.Name, mission.LogArtifact, map[string]any{
		"name": a.Name,
		"type": string(a.Type),
	})
	r.state.AppendMessage(ctx, mission.Message{
		Role:       mission.RoleAgent,
		AgentID:    ag.ID,
		AgentName:  ag.Name,
		Content:    "Created artifact: " + a.Name,
		ArtifactID: a.ID,
	})

	r.state.UpdateTask(ctx, taskID, func(t *task.Task) { t.Status = task.StatusDone })
}

// finish performs the post-loop exhaustion accounting and the exit
// transitions. Only a still-active task is forced to done here; every
// other status was set by a terminal branch.
func (r *Runner) finish(ctx context.Context, agentID, taskID string) {
	ag, _ := r.state.GetAgent(agentID)
	t, _ := r.state.GetTask(taskID)

	if t.Status == task.StatusActive {
		switch {
		case t.TimeLimitExceeded(r.now()):
			elapsed := 0
			if t.StartedAt != nil {
				elapsed = int(r.now().Sub(*t.StartedAt).Round(time.Second).Seconds())
			}
			r.state.AppendLog(ctx, ag.ID, ag.Name, mission.LogComplete, map[string]any{
				"reason":          "max_duration_reached",
				"durationSeconds": elapsed,
			})
			r.state.AppendMessage(ctx, mission.Message{
				Role:    mission.RoleSystem,
				Content: formatDurationNotice(ag.Name, elapsed),
			})
			r.state.UpdateTask(ctx, taskID, func(t *task.Task) { t.Status = task.StatusDone })
		case t.IterationCount >= t.MaxIterations:
			r.state.AppendLog(ctx, ag.ID, ag.Name, mission.LogComplete, map[string]any{
				"reason": "max_iterations_reached",
			})
			r.state.UpdateTask(ctx, taskID, func(t *task.Task) { t.Status = task.StatusDone })
		}
	}

	t, _ = r.state.GetTask(taskID)
	exit := agent.StatusIdle // covers blocked
	switch t.Status {
	case task.StatusDone:
		exit = agent.StatusComplete
	case task.StatusFailed:
		exit = agent.StatusError
	}

	if r.metrics != nil {
		if exit == agent.StatusError {
			r.metrics.RunsFailed.Add(ctx, 1)
		} else {
			r.metrics.RunsCompleted.Add(ctx, 1)
		}
		if t.StartedAt != nil {
			r.metrics.RunDuration.Record(ctx, r.now().Sub(*t.StartedAt).Seconds())
		}
	}

	r.state.UpdateAgent(ctx, agentID, func(a *agent.Agent) {
		a.Status = exit
		a.CurrentTaskID = ""
	})
	// Broadcast the final task state even when unchanged since the last
	// transition, so observers always close on a terminal task_update.
	r.state.UpdateTask(ctx, taskID, func(*task.Task) {})
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func formatDurationNotice(agentName string, seconds int) string {
	return agentName + " completed after " + strconv.Itoa(seconds) + "s (time limit reached)"
}
