package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Command type constants for inbound WebSocket messages.
const (
	CmdGodMode        = "god_mode"
	CmdChat           = "chat"
	CmdSteeringUpdate = "steering_update"
	CmdToolToggle     = "tool_toggle"
	CmdRerunAgent     = "rerun_agent"
	CmdCancelTask     = "cancel_task"
	CmdReset          = "reset"
)

// GodModeCommand starts a mission from a free-text goal.
type GodModeCommand struct {
	Goal string `json:"goal"`
}

// ChatCommand sends a user chat message to the coordinator.
type ChatCommand struct {
	Content string `json:"content"`
}

// SteeringUpdateCommand adjusts an agent's steering parameters.
type SteeringUpdateCommand struct {
	AgentID   string  `json:"agentId"`
	SteeringX float64 `json:"steeringX"`
	SteeringY float64 `json:"steeringY"`
}

// ToolToggleCommand enables or disables one of an agent's tools.
type ToolToggleCommand struct {
	AgentID string `json:"agentId"`
	Tool    string `json:"tool"`
	Enabled bool   `json:"enabled"`
}

// RerunAgentCommand restarts an agent against a fresh copy of its task.
type RerunAgentCommand struct {
	AgentID            string `json:"agentId"`
	MaxDurationSeconds int    `json:"maxDurationSeconds,omitempty"`
	RunIntervalMinutes int    `json:"runIntervalMinutes,omitempty"`
}

// CancelTaskCommand cancels a task and clears any schedule timer.
type CancelTaskCommand struct {
	TaskID string `json:"taskId"`
}

// MissionCommands is the operation surface inbound commands map onto.
type MissionCommands interface {
	StartMission(ctx context.Context, goal string)
	Chat(ctx context.Context, content string)
	UpdateSteering(ctx context.Context, agentID string, steeringX, steeringY float64)
	ToggleTool(ctx context.Context, agentID, tool string, enabled bool)
	RerunAgent(ctx context.Context, agentID string, maxDurationSeconds, runIntervalMinutes int)
	CancelTask(ctx context.Context, taskID string)
	Reset(ctx context.Context)
}

// CommandRouter decodes inbound messages and dispatches them 1:1 onto
// mission operations. It implements CommandHandler.
type CommandRouter struct {
	missions MissionCommands
}

// NewCommandRouter creates a router over the given mission operations.
func NewCommandRouter(missions MissionCommands) *CommandRouter {
	return &CommandRouter{missions: missions}
}

// HandleCommand decodes and executes one inbound command. Unknown types
// and malformed payloads are logged and dropped; they never affect state.
func (r *CommandRouter) HandleCommand(ctx context.Context, msg Message) {
	switch msg.Type {
	case CmdGodMode:
		var cmd GodModeCommand
		if !decode(msg, &cmd) {
			return
		}
		r.missions.StartMission(ctx, cmd.Goal)
	case CmdChat:
		var cmd ChatCommand
		if !decode(msg, &cmd) {
			return
		}
		r.missions.Chat(ctx, cmd.Content)
	case CmdSteeringUpdate:
		var cmd SteeringUpdateCommand
		if !decode(msg, &cmd) {
			return
		}
		r.missions.UpdateSteering(ctx, cmd.AgentID, cmd.SteeringX, cmd.SteeringY)
	case CmdToolToggle:
		var cmd ToolToggleCommand
		if !decode(msg, &cmd) {
			return
		}
		r.missions.ToggleTool(ctx, cmd.AgentID, cmd.Tool, cmd.Enabled)
	case CmdRerunAgent:
		var cmd RerunAgentCommand
		if !decode(msg, &cmd) {
			return
		}
		r.missions.RerunAgent(ctx, cmd.AgentID, cmd.MaxDurationSeconds, cmd.RunIntervalMinutes)
	case CmdCancelTask:
		var cmd CancelTaskCommand
		if !decode(msg, &cmd) {
			return
		}
		r.missions.CancelTask(ctx, cmd.TaskID)
	case CmdReset:
		r.missions.Reset(ctx)
	default:
		slog.Warn("unknown ws command", "type", msg.Type)
	}
}

func decode(msg Message, dst any) bool {
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		slog.Warn("invalid ws command payload", "type", msg.Type, "error", err)
		return false
	}
	return true
}
