package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/artifact"
	"github.com/Strob0t/MissionDeck/internal/domain/decision"
	"github.com/Strob0t/MissionDeck/internal/domain/mission"
	"github.com/Strob0t/MissionDeck/internal/domain/task"
)

// stubProvider returns scripted decisions. The last decision repeats when
// the script runs out.
type stubProvider struct {
	decisions []decision.Decision
	usage     decision.Usage
	err       error
	calls     int
}

func (p *stubProvider) Decide(context.Context, *agent.Agent, *task.Task, string, []string) (decision.Decision, decision.Usage, error) {
	p.calls++
	if p.err != nil {
		return decision.Decision{}, decision.Usage{}, p.err
	}
	i := p.calls - 1
	if i >= len(p.decisions) {
		i = len(p.decisions) - 1
	}
	return p.decisions[i], p.usage, nil
}

func newRunnerFixture(provider *stubProvider) (*Runner, *StateService, *recordingHub) {
	state, hub := newTestState()
	runner := NewRunner(state, provider, NewToolExecutor(0), nil)
	return runner, state, hub
}

func seedRun(state *StateService, maxIterations int) (agentID, taskID string) {
	ctx := context.Background()
	state.PutAgent(ctx, &agent.Agent{
		ID: "a1", Name: "Researcher", Status: agent.StatusIdle,
		Tools: []string{"web_search"}, EnabledTools: []string{"web_search"},
	})
	state.PutTask(ctx, &task.Task{
		ID: "t1", Goal: "Research the topic", Status: task.StatusPending,
		AssignedAgentID: "a1", MaxIterations: maxIterations,
	})
	return "a1", "t1"
}

func TestRunCompletes(t *testing.T) {
	provider := &stubProvider{
		decisions: []decision.Decision{{Action: decision.ActionComplete, Message: "Findings attached", Reason: "criteria met"}},
		usage:     decision.Usage{Tokens: 100, CostUSD: 0.0001},
	}
	runner, state, hub := newRunnerFixture(provider)
	agentID, taskID := seedRun(state, 5)

	runner.Run(context.Background(), agentID, taskID)

	tk, _ := state.GetTask(taskID)
	if tk.Status != task.StatusDone {
		t.Fatalf("expected done, got %s", tk.Status)
	}
	if tk.IterationCount != 1 {
		t.Errorf("expected 1 iteration, got %d", tk.IterationCount)
	}

	ag, _ := state.GetAgent(agentID)
	if ag.Status != agent.StatusComplete {
		t.Errorf("expected agent complete, got %s", ag.Status)
	}
	if ag.CurrentTaskID != "" {
		t.Errorf("expected cleared current task, got %q", ag.CurrentTaskID)
	}
	if ag.TokenCount != 100 || ag.CostSpent != 0.0001 {
		t.Errorf("expected usage accumulated, got %d/%v", ag.TokenCount, ag.CostSpent)
	}

	if hub.count("message") != 1 {
		t.Errorf("expected 1 completion message, got %d", hub.count("message"))
	}
}

func TestRunMaxIterationsForcedDone(t *testing.T) {
	provider := &stubProvider{
		decisions: []decision.Decision{{Action: decision.ActionUseTool, Tool: "web_search", ToolInput: map[string]string{"query": "q"}}},
	}
	runner, state, _ := newRunnerFixture(provider)
	agentID, taskID := seedRun(state, 3)

	runner.Run(context.Background(), agentID, taskID)

	if provider.calls != 3 {
		t.Fatalf("expected 3 decide calls, got %d", provider.calls)
	}

	tk, _ := state.GetTask(taskID)
	if tk.Status != task.StatusDone {
		t.Fatalf("expected forced done on exhaustion, got %s", tk.Status)
	}
	if tk.IterationCount != 3 {
		t.Errorf("expected 3 iterations, got %d", tk.IterationCount)
	}
	if len(tk.Outputs) != 3 {
		t.Errorf("expected 3 tool outputs, got %d", len(tk.Outputs))
	}

	ag, _ := state.GetAgent(agentID)
	if ag.Status != agent.StatusComplete {
		t.Errorf("expected agent complete, got %s", ag.Status)
	}

	found := false
	for _, entry := range state.Snapshot().Logs {
		if entry.Type == mission.LogComplete && entry.Data["reason"] == "max_iterations_reached" {
			found = true
		}
	}
	if !found {
		t.Error("expected max_iterations_reached log entry")
	}
}

func TestRunProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("model unavailable")}
	runner, state, _ := newRunnerFixture(provider)
	agentID, taskID := seedRun(state, 5)

	runner.Run(context.Background(), agentID, taskID)

	if provider.calls != 1 {
		t.Fatalf("expected 1 decide call before abort, got %d", provider.calls)
	}

	tk, _ := state.GetTask(taskID)
	if tk.Status != task.StatusFailed {
		t.Fatalf("expected failed, got %s", tk.Status)
	}
	ag, _ := state.GetAgent(agentID)
	if ag.Status != agent.StatusError {
		t.Errorf("expected agent error, got %s", ag.Status)
	}

	found := false
	for _, entry := range state.Snapshot().Logs {
		if entry.Type == mission.LogError {
			found = true
		}
	}
	if !found {
		t.Error("expected error log entry")
	}
}

func TestRunCreateArtifactOrdering(t *testing.T) {
	provider := &stubProvider{
		decisions: []decision.Decision{{
			Action:          decision.ActionCreateArtifact,
			ArtifactName:    "report.md",
			ArtifactContent: "# Report",
			ArtifactType:    artifact.TypeMarkdown,
			Reason:          "deliverable ready",
		}},
	}
	runner, state, hub := newRunnerFixture(provider)
	agentID, taskID := seedRun(state, 5)

	runner.Run(context.Background(), agentID, taskID)

	arts := state.Artifacts()
	if len(arts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(arts))
	}
	if arts[0].CreatedBy != "Researcher" {
		t.Errorf("expected creator Researcher, got %s", arts[0].CreatedBy)
	}

	// The artifact and its announcement precede the done task_update.
	artifactAt, doneAt := -1, -1
	for i, e := range hub.all() {
		switch e.Type {
		case "artifact":
			artifactAt = i
		case "task_update":
			if tk, ok := e.Payload.(task.Task); ok && tk.Status == task.StatusDone && doneAt < 0 {
				doneAt = i
			}
		}
	}
	if artifactAt < 0 || doneAt < 0 {
		t.Fatal("expected both artifact and done task_update events")
	}
	if artifactAt > doneAt {
		t.Errorf("artifact event at %d must precede done task_update at %d", artifactAt, doneAt)
	}

	tk, _ := state.GetTask(taskID)
	if tk.Status != task.StatusDone {
		t.Errorf("expected done after artifact, got %s", tk.Status)
	}
	ag, _ := state.GetAgent(agentID)
	if ag.Status != agent.StatusComplete {
		t.Errorf("expected agent complete, got %s", ag.Status)
	}
}

func TestRunAskUserBlocks(t *testing.T) {
	provider := &stubProvider{
		decisions: []decision.Decision{{Action: decision.ActionAskUser, Message: "Which format?"}},
	}
	runner, state, _ := newRunnerFixture(provider)
	agentID, taskID := seedRun(state, 5)

	runner.Run(context.Background(), agentID, taskID)

	tk, _ := state.GetTask(taskID)
	if tk.Status != task.StatusBlocked {
		t.Fatalf("expected blocked, got %s", tk.Status)
	}
	// Blocked maps to idle: the agent neither succeeded nor failed.
	ag, _ := state.GetAgent(agentID)
	if ag.Status != agent.StatusIdle {
		t.Errorf("expected agent idle, got %s", ag.Status)
	}
}

func TestRunBusyAgentNoop(t *testing.T) {
	provider := &stubProvider{
		decisions: []decision.Decision{{Action: decision.ActionComplete}},
	}
	runner, state, _ := newRunnerFixture(provider)
	agentID, taskID := seedRun(state, 5)

	state.UpdateAgent(context.Background(), agentID, func(a *agent.Agent) { a.Status = agent.StatusWorking })

	runner.Run(context.Background(), agentID, taskID)

	if provider.calls != 0 {
		t.Fatalf("expected no decide calls for busy agent, got %d", provider.calls)
	}
	tk, _ := state.GetTask(taskID)
	if tk.Status != task.StatusPending {
		t.Errorf("expected task untouched, got %s", tk.Status)
	}
}

func TestRunTimeLimit(t *testing.T) {
	provider := &stubProvider{
		decisions: []decision.Decision{{Action: decision.ActionUseTool, Tool: "web_search", ToolInput: map[string]string{"query": "q"}}},
	}
	runner, state, _ := newRunnerFixture(provider)
	agentID, taskID := seedRun(state, 100)
	state.UpdateTask(context.Background(), taskID, func(tk *task.Task) { tk.MaxDurationSeconds = 30 })

	// Advance the clock 20s per observation: the limit trips after the
	// first iteration.
	now := time.Now()
	runner.now = func() time.Time {
		now = now.Add(20 * time.Second)
		return now
	}

	runner.Run(context.Background(), agentID, taskID)

	tk, _ := state.GetTask(taskID)
	if tk.Status != task.StatusDone {
		t.Fatalf("expected done after time limit, got %s", tk.Status)
	}
	if tk.IterationCount >= 100 {
		t.Error("expected the time limit to stop the loop early")
	}

	found := false
	for _, entry := range state.Snapshot().Logs {
		if entry.Type == mission.LogComplete && entry.Data["reason"] == "max_duration_reached" {
			found = true
		}
	}
	if !found {
		t.Error("expected max_duration_reached log entry")
	}
}
