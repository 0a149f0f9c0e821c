package mission

import "time"

// Role identifies the author kind of a chat message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Message is one chat-thread entry. AgentID/AgentName are set for agent
// messages; ArtifactID links a message to the artifact it announces.
type Message struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	AgentID    string    `json:"agentId,omitempty"`
	AgentName  string    `json:"agentName,omitempty"`
	ArtifactID string    `json:"artifactId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
