package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Strob0t/MissionDeck/internal/adapter/ws"
	"github.com/Strob0t/MissionDeck/internal/config"
	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/mission"
	"github.com/Strob0t/MissionDeck/internal/domain/task"
)

// CoordinatorID is the fixed id of the always-available chat agent.
const CoordinatorID = "coordinator-agent"

// MissionService implements the inbound command surface. It composes the
// planner, runner and scheduler over the shared mission state. Commands
// arrive from concurrent WebSocket connections; per-agent exclusivity is
// enforced by the state layer's BeginRun, so a command against a busy
// agent degrades to a no-op rather than a queued run.
type MissionService struct {
	cfg     config.Mission
	state   *StateService
	planner *PlannerService
	runner  *Runner
	sched   *Scheduler
}

// NewMissionService wires the command surface and registers the
// coordinator agent.
func NewMissionService(cfg config.Mission, state *StateService, planner *PlannerService, runner *Runner, sched *Scheduler) *MissionService {
	s := &MissionService{
		cfg:     cfg,
		state:   state,
		planner: planner,
		runner:  runner,
		sched:   sched,
	}
	s.ensureCoordinator(context.Background())
	return s
}

// ensureCoordinator registers the chat agent if it is not present.
func (s *MissionService) ensureCoordinator(ctx context.Context) {
	if _, ok := s.state.GetAgent(CoordinatorID); ok {
		return
	}
	s.state.PutAgent(ctx, &agent.Agent{
		ID:          CoordinatorID,
		Name:        agent.CoordinatorName,
		Description: "Helpful assistant for answering questions about agents, artifacts, and mission progress",
		Status:      agent.StatusIdle,
		Position:    agent.Position{X: -150, Y: -100},
		SteeringX:   0.7,
		SteeringY:   0.5,
	})
}

// StartMission decomposes the goal into a plan, materializes its agents
// and tasks, and runs each task in order. Planning never fails; at worst
// a single general-purpose agent takes the verbatim goal.
func (s *MissionService) StartMission(ctx context.Context, goal string) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		slog.Warn("empty mission goal ignored")
		return
	}

	s.state.SetContext(goal)
	s.state.AppendMessage(ctx, mission.Message{
		Role:    mission.RoleSystem,
		Content: "Analyzing request and planning mission...",
	})
	s.state.AppendLog(ctx, mission.ControlAgentID, mission.ControlAgentName, mission.LogAction, map[string]any{
		"action": "decompose_goal",
		"goal":   goal,
	})

	plan := s.planner.Plan(ctx, goal)

	agents := make([]*agent.Agent, 0, len(plan.Agents))
	for i, tpl := range plan.Agents {
		ag := &agent.Agent{
			ID:           uuid.NewString(),
			Name:         tpl.Name,
			Description:  tpl.Description,
			Status:       agent.StatusIdle,
			Position:     agent.Position{X: float64(i) * 150},
			SteeringX:    tpl.SteeringX,
			SteeringY:    tpl.SteeringY,
			Tools:        append([]string(nil), tpl.Tools...),
			EnabledTools: append([]string(nil), tpl.Tools...),
			AxisLabels:   tpl.AxisLabels,
		}
		s.state.PutAgent(ctx, ag)
		agents = append(agents, ag)
	}

	tasks := make([]*task.Task, 0, len(plan.Tasks))
	for i, tpl := range plan.Tasks {
		idx := tpl.AgentIndex
		if idx < 0 || idx >= len(agents) {
			idx = i % len(agents)
		}
		t := &task.Task{
			ID:              uuid.NewString(),
			Goal:            tpl.Goal,
			Status:          task.StatusPending,
			AssignedAgentID: agents[idx].ID,
			Inputs:          append([]string(nil), tpl.Inputs...),
			SuccessCriteria: tpl.SuccessCriteria,
			MaxIterations:   s.cfg.MaxIterations,
		}
		s.state.PutTask(ctx, t)
		tasks = append(tasks, t)
	}

	names := make([]string, len(agents))
	for i, ag := range agents {
		names[i] = ag.Name
	}
	s.state.AppendMessage(ctx, mission.Message{
		Role:    mission.RoleSystem,
		Content: fmt.Sprintf("Created %d agent(s): %s. Starting execution...", len(agents), strings.Join(names, ", ")),
	})

	for _, t := range tasks {
		s.stampAppliedSteering(ctx, t.AssignedAgentID)
		s.runner.Run(ctx, t.AssignedAgentID, t.ID)
	}

	s.state.AppendMessage(ctx, mission.Message{
		Role:    mission.RoleSystem,
		Content: "Mission complete. All agents have finished their tasks.",
	})
}

// Chat routes a user message to the coordinator, which answers through a
// one-iteration run. A message arriving while the coordinator is already
// answering is recorded but triggers no second run.
func (s *MissionService) Chat(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	s.state.AppendMessage(ctx, mission.Message{
		Role:    mission.RoleUser,
		Content: content,
	})

	s.ensureCoordinator(ctx)
	if st, ok := s.state.AgentStatus(CoordinatorID); !ok || st == agent.StatusWorking {
		slog.Info("coordinator busy, chat recorded without run")
		return
	}

	t := &task.Task{
		ID:              uuid.NewString(),
		Goal:            "Answer user question: " + content,
		Status:          task.StatusPending,
		AssignedAgentID: CoordinatorID,
		Inputs:          []string{content},
		SuccessCriteria: "Provide helpful response",
		MaxIterations:   1,
	}
	s.state.PutTask(ctx, t)

	s.runner.Run(ctx, CoordinatorID, t.ID)

	// The coordinator always returns to idle so the next message is
	// answerable immediately.
	s.state.UpdateAgent(ctx, CoordinatorID, func(a *agent.Agent) {
		a.Status = agent.StatusIdle
	})
}

// UpdateSteering records new steering values. They take effect on the
// agent's next run; LastAppliedSteeringX/Y keep the values the current
// or previous run actually used.
func (s *MissionService) UpdateSteering(ctx context.Context, agentID string, steeringX, steeringY float64) {
	ok := s.state.UpdateAgent(ctx, agentID, func(a *agent.Agent) {
		a.SteeringX = clamp01(steeringX)
		a.SteeringY = clamp01(steeringY)
	})
	if !ok {
		slog.Warn("steering update for unknown agent", "agent_id", agentID)
	}
}

// ToggleTool adds or removes a tool from the agent's enabled subset.
func (s *MissionService) ToggleTool(ctx context.Context, agentID, toolName string, enabled bool) {
	var agentName string
	ok := s.state.UpdateAgent(ctx, agentID, func(a *agent.Agent) {
		agentName = a.Name
		a.EnabledTools = setTool(a.EnabledTools, toolName, enabled)
	})
	if !ok {
		slog.Warn("tool toggle for unknown agent", "agent_id", agentID)
		return
	}
	s.state.AppendLog(ctx, agentID, agentName, mission.LogAction, map[string]any{
		"action":  "tool_toggle",
		"tool":    toolName,
		"enabled": enabled,
	})
}

// RerunAgent starts a fresh run for the agent with its current steering,
// against a copy of its existing task (or a synthetic steering task when
// it never had one). With runIntervalMinutes > 0 the copy is scheduled
// to recur instead of running immediately. Busy agents are left alone.
func (s *MissionService) RerunAgent(ctx context.Context, agentID string, maxDurationSeconds, runIntervalMinutes int) {
	ag, ok := s.state.GetAgent(agentID)
	if !ok {
		slog.Warn("rerun for unknown agent", "agent_id", agentID)
		return
	}
	if ag.Status == agent.StatusWorking {
		slog.Info("rerun skipped, agent busy", "agent", ag.Name)
		return
	}

	s.state.AppendLog(ctx, ag.ID, ag.Name, mission.LogAction, map[string]any{
		"action":    "rerun",
		"steeringX": ag.SteeringX,
		"steeringY": ag.SteeringY,
	})

	goal := fmt.Sprintf("Continue work with updated steering (X: %.0f%%, Y: %.0f%%)", ag.SteeringX*100, ag.SteeringY*100)
	criteria := "Complete task with new steering parameters"
	if prev, ok := s.state.FindTaskForAgent(agentID); ok {
		goal = prev.Goal
		criteria = prev.SuccessCriteria
	}

	t := &task.Task{
		ID:                 uuid.NewString(),
		Goal:               goal,
		Status:             task.StatusPending,
		AssignedAgentID:    agentID,
		SuccessCriteria:    criteria,
		MaxIterations:      s.cfg.RerunMaxIterations,
		MaxDurationSeconds: maxDurationSeconds,
		RunIntervalMinutes: runIntervalMinutes,
	}
	s.state.PutTask(ctx, t)

	s.stampAppliedSteering(ctx, agentID)

	if t.Recurring() {
		s.sched.Schedule(ctx, t.ID)
		return
	}
	s.runner.Run(ctx, agentID, t.ID)
}

// CancelTask marks the task failed and clears any schedule timer. Safe
// to repeat: a second call changes nothing.
func (s *MissionService) CancelTask(ctx context.Context, taskID string) {
	t, ok := s.state.GetTask(taskID)
	if !ok {
		slog.Warn("cancel for unknown task", "task_id", taskID)
		return
	}

	cancelled := s.sched.Cancel(taskID)
	if t.Status != task.StatusFailed {
		s.state.UpdateTask(ctx, taskID, func(t *task.Task) { t.Status = task.StatusFailed })
	}
	if cancelled {
		s.state.AppendMessage(ctx, mission.Message{
			Role:    mission.RoleSystem,
			Content: "Cancelled scheduled task: " + t.Goal,
		})
	}
}

// Reset cancels all timers, clears the mission state, and re-registers
// the coordinator. Timers go first so none fires against cleared state.
func (s *MissionService) Reset(ctx context.Context) {
	s.sched.CancelAll()
	s.state.Reset(ctx)
	s.ensureCoordinator(ctx)
}

// SnapshotMessages builds the per-entity event frames sent to a newly
// connected client, mirroring GET /api/state.
func (s *MissionService) SnapshotMessages() []ws.Message {
	snap := s.state.Snapshot()
	msgs := make([]ws.Message, 0, len(snap.Agents)+len(snap.Tasks)+len(snap.Artifacts)+len(snap.Logs)+len(snap.Messages))
	for _, ag := range snap.Agents {
		msgs = appendEvent(msgs, ws.EventAgent, ag)
	}
	for _, t := range snap.Tasks {
		msgs = appendEvent(msgs, ws.EventTask, t)
	}
	for _, a := range snap.Artifacts {
		msgs = appendEvent(msgs, ws.EventArtifact, a)
	}
	for _, entry := range snap.Logs {
		msgs = appendEvent(msgs, ws.EventLog, entry)
	}
	for _, m := range snap.Messages {
		msgs = appendEvent(msgs, ws.EventMessage, m)
	}
	return msgs
}

func appendEvent(msgs []ws.Message, eventType string, payload any) []ws.Message {
	msg, err := ws.NewMessage(eventType, payload)
	if err != nil {
		slog.Error("snapshot event encode failed", "type", eventType, "error", err)
		return msgs
	}
	return append(msgs, msg)
}

// stampAppliedSteering records the steering values the starting run will
// use, so pending edits can be distinguished from applied ones.
func (s *MissionService) stampAppliedSteering(ctx context.Context, agentID string) {
	s.state.UpdateAgent(ctx, agentID, func(a *agent.Agent) {
		x, y := a.SteeringX, a.SteeringY
		a.LastAppliedSteeringX = &x
		a.LastAppliedSteeringY = &y
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// setTool always allocates: copies of the previous slice may still be
// read by a concurrent run, so the old backing array is never reused.
func setTool(tools []string, name string, enabled bool) []string {
	out := make([]string, 0, len(tools)+1)
	for _, t := range tools {
		if t != name {
			out = append(out, t)
		}
	}
	if enabled {
		out = append(out, name)
	}
	return out
}
