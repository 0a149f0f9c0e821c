// Package mission defines the append-only record types owned by a mission:
// the execution log and the chat message thread.
package mission

import "time"

// LogType classifies an execution log entry.
type LogType string

const (
	LogDecision LogType = "decision"
	LogAction   LogType = "action"
	LogArtifact LogType = "artifact"
	LogError    LogType = "error"
	LogComplete LogType = "complete"
)

// ControlAgentID and ControlAgentName identify log entries emitted by the
// orchestrator itself rather than by a planned agent.
const (
	ControlAgentID   = "system"
	ControlAgentName = "Mission Control"
)

// LogEntry is an immutable timestamped record of one orchestration event,
// scoped to one agent, with an open-ended payload.
type LogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	AgentID   string         `json:"agentId"`
	AgentName string         `json:"agentName"`
	Type      LogType        `json:"type"`
	Data      map[string]any `json:"data"`
}
