package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for outbound WebSocket messages.
const (
	EventConnected   = "connected"
	EventAgent       = "agent"
	EventAgentUpdate = "agent_update"
	EventTask        = "task"
	EventTaskUpdate  = "task_update"
	EventArtifact    = "artifact"
	EventMessage     = "message"
	EventLog         = "log"
	EventReset       = "reset"
)

// NewMessage builds an event envelope with a marshaled payload.
func NewMessage(eventType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: eventType, Payload: json.RawMessage(data)}, nil
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
