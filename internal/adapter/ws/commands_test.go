package ws

import (
	"context"
	"encoding/json"
	"testing"
)

// recordingMissions captures dispatched operations.
type recordingMissions struct {
	calls []string

	goal      string
	content   string
	agentID   string
	steeringX float64
	steeringY float64
	tool      string
	enabled   bool
	maxDur    int
	interval  int
	taskID    string
}

func (m *recordingMissions) StartMission(_ context.Context, goal string) {
	m.calls = append(m.calls, "start_mission")
	m.goal = goal
}

func (m *recordingMissions) Chat(_ context.Context, content string) {
	m.calls = append(m.calls, "chat")
	m.content = content
}

func (m *recordingMissions) UpdateSteering(_ context.Context, agentID string, x, y float64) {
	m.calls = append(m.calls, "update_steering")
	m.agentID, m.steeringX, m.steeringY = agentID, x, y
}

func (m *recordingMissions) ToggleTool(_ context.Context, agentID, tool string, enabled bool) {
	m.calls = append(m.calls, "toggle_tool")
	m.agentID, m.tool, m.enabled = agentID, tool, enabled
}

func (m *recordingMissions) RerunAgent(_ context.Context, agentID string, maxDur, interval int) {
	m.calls = append(m.calls, "rerun_agent")
	m.agentID, m.maxDur, m.interval = agentID, maxDur, interval
}

func (m *recordingMissions) CancelTask(_ context.Context, taskID string) {
	m.calls = append(m.calls, "cancel_task")
	m.taskID = taskID
}

func (m *recordingMissions) Reset(context.Context) {
	m.calls = append(m.calls, "reset")
}

func dispatch(t *testing.T, r *CommandRouter, cmdType string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	r.HandleCommand(context.Background(), Message{Type: cmdType, Payload: data})
}

func TestRouterDispatchesCommands(t *testing.T) {
	m := &recordingMissions{}
	r := NewCommandRouter(m)

	dispatch(t, r, CmdGodMode, GodModeCommand{Goal: "build a report"})
	dispatch(t, r, CmdChat, ChatCommand{Content: "status?"})
	dispatch(t, r, CmdSteeringUpdate, SteeringUpdateCommand{AgentID: "a1", SteeringX: 0.8, SteeringY: 0.2})
	dispatch(t, r, CmdToolToggle, ToolToggleCommand{AgentID: "a1", Tool: "web_search", Enabled: true})
	dispatch(t, r, CmdRerunAgent, RerunAgentCommand{AgentID: "a1", MaxDurationSeconds: 60, RunIntervalMinutes: 5})
	dispatch(t, r, CmdCancelTask, CancelTaskCommand{TaskID: "t1"})
	r.HandleCommand(context.Background(), Message{Type: CmdReset})

	want := []string{"start_mission", "chat", "update_steering", "toggle_tool", "rerun_agent", "cancel_task", "reset"}
	if len(m.calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), m.calls)
	}
	for i := range want {
		if m.calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], m.calls[i])
		}
	}

	if m.goal != "build a report" || m.content != "status?" {
		t.Error("payload fields not routed")
	}
	if m.steeringX != 0.8 || m.steeringY != 0.2 {
		t.Error("steering values not routed")
	}
	if m.tool != "web_search" || !m.enabled {
		t.Error("tool toggle not routed")
	}
	if m.maxDur != 60 || m.interval != 5 {
		t.Error("rerun schedule fields not routed")
	}
	if m.taskID != "t1" {
		t.Error("task id not routed")
	}
}

func TestRouterDropsUnknownAndMalformed(t *testing.T) {
	m := &recordingMissions{}
	r := NewCommandRouter(m)

	r.HandleCommand(context.Background(), Message{Type: "self_destruct", Payload: []byte(`{}`)})
	r.HandleCommand(context.Background(), Message{Type: CmdGodMode, Payload: []byte(`{not json`)})

	if len(m.calls) != 0 {
		t.Fatalf("expected no dispatches, got %v", m.calls)
	}
}
