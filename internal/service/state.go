// Package service implements the mission orchestration use-cases.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/MissionDeck/internal/adapter/ws"
	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/artifact"
	"github.com/Strob0t/MissionDeck/internal/domain/mission"
	"github.com/Strob0t/MissionDeck/internal/domain/task"
	"github.com/Strob0t/MissionDeck/internal/port/broadcast"
)

// Snapshot is the full mission state returned by GET /api/state and sent
// to newly connected clients.
type Snapshot struct {
	Agents    []agent.Agent       `json:"agents"`
	Tasks     []task.Task         `json:"tasks"`
	Artifacts []artifact.Artifact `json:"artifacts"`
	Logs      []mission.LogEntry  `json:"logs"`
	Messages  []mission.Message   `json:"messages"`
}

// StateService is the authoritative, process-wide registry of all agents,
// tasks, artifacts, the execution log and the chat thread. Every mutation
// and its broadcast are emitted under one mutex, so observers see events
// in exactly the order mutations were applied.
type StateService struct {
	mu        sync.Mutex
	hub       broadcast.Broadcaster
	agents    map[string]*agent.Agent
	tasks     map[string]*task.Task
	artifacts map[string]*artifact.Artifact
	logs      []mission.LogEntry
	messages  []mission.Message
	context   string
}

// NewStateService creates an empty mission state backed by the given broadcaster.
func NewStateService(hub broadcast.Broadcaster) *StateService {
	return &StateService{
		hub:       hub,
		agents:    make(map[string]*agent.Agent),
		tasks:     make(map[string]*task.Task),
		artifacts: make(map[string]*artifact.Artifact),
	}
}

// PutAgent registers a new agent and broadcasts its creation.
func (s *StateService) PutAgent(ctx context.Context, ag *agent.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[ag.ID] = ag
	s.hub.BroadcastEvent(ctx, ws.EventAgent, *ag)
}

// UpdateAgent applies fn to the agent under the state lock and broadcasts
// the patched agent. Returns false if the agent does not exist.
func (s *StateService) UpdateAgent(ctx context.Context, id string, fn func(*agent.Agent)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ag, ok := s.agents[id]
	if !ok {
		return false
	}
	fn(ag)
	s.hub.BroadcastEvent(ctx, ws.EventAgentUpdate, *ag)
	return true
}

// BeginRun atomically marks the agent as working on the given task.
// Returns false when the agent is missing or already working, which
// guarantees at most one concurrent run per agent.
func (s *StateService) BeginRun(ctx context.Context, agentID, taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ag, ok := s.agents[agentID]
	if !ok || ag.Status == agent.StatusWorking {
		return false
	}
	ag.Status = agent.StatusWorking
	ag.CurrentTaskID = taskID
	s.hub.BroadcastEvent(ctx, ws.EventAgentUpdate, *ag)
	return true
}

// GetAgent returns a copy of the agent, if present.
func (s *StateService) GetAgent(id string) (agent.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ag, ok := s.agents[id]
	if !ok {
		return agent.Agent{}, false
	}
	return copyAgent(ag), true
}

// AgentStatus returns the agent's current lifecycle status.
func (s *StateService) AgentStatus(id string) (agent.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ag, ok := s.agents[id]
	if !ok {
		return "", false
	}
	return ag.Status, true
}

// PutTask registers a new task and broadcasts its creation.
func (s *StateService) PutTask(ctx context.Context, t *task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	s.hub.BroadcastEvent(ctx, ws.EventTask, *t)
}

// UpdateTask applies fn to the task under the state lock and broadcasts
// the patched task. Returns false if the task does not exist.
func (s *StateService) UpdateTask(ctx context.Context, id string, fn func(*task.Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	fn(t)
	s.hub.BroadcastEvent(ctx, ws.EventTaskUpdate, *t)
	return true
}

// GetTask returns a copy of the task, if present.
func (s *StateService) GetTask(id string) (task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, false
	}
	return copyTask(t), true
}

// FindTaskForAgent returns a copy of any task assigned to the agent.
func (s *StateService) FindTaskForAgent(agentID string) (task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.AssignedAgentID == agentID {
			return copyTask(t), true
		}
	}
	return task.Task{}, false
}

// PutArtifact stores a new artifact and broadcasts it.
func (s *StateService) PutArtifact(ctx context.Context, a *artifact.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[a.ID] = a
	s.hub.BroadcastEvent(ctx, ws.EventArtifact, *a)
}

// GetArtifact returns a copy of the artifact, if present.
func (s *StateService) GetArtifact(id string) (artifact.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return artifact.Artifact{}, false
	}
	return *a, true
}

// Artifacts returns a copy of all stored artifacts.
func (s *StateService) Artifacts() []artifact.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]artifact.Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		out = append(out, *a)
	}
	return out
}

// AppendLog records an execution log entry and broadcasts it.
func (s *StateService) AppendLog(ctx context.Context, agentID, agentName string, typ mission.LogType, data map[string]any) mission.LogEntry {
	entry := mission.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		AgentID:   agentID,
		AgentName: agentName,
		Type:      typ,
		Data:      data,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	s.hub.BroadcastEvent(ctx, ws.EventLog, entry)
	return entry
}

// AppendMessage records a chat message and broadcasts it. ID and
// timestamp are filled in if unset.
func (s *StateService) AppendMessage(ctx context.Context, msg mission.Message) mission.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.hub.BroadcastEvent(ctx, ws.EventMessage, msg)
	return msg
}

// SetContext records the mission-wide ambient context (the last goal).
func (s *StateService) SetContext(goal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = goal
}

// Context returns the mission-wide ambient context.
func (s *StateService) Context() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context
}

// Snapshot returns a copy of the full mission state.
func (s *StateService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Agents:    make([]agent.Agent, 0, len(s.agents)),
		Tasks:     make([]task.Task, 0, len(s.tasks)),
		Artifacts: make([]artifact.Artifact, 0, len(s.artifacts)),
		Logs:      append([]mission.LogEntry(nil), s.logs...),
		Messages:  append([]mission.Message(nil), s.messages...),
	}
	for _, ag := range s.agents {
		snap.Agents = append(snap.Agents, copyAgent(ag))
	}
	for _, t := range s.tasks {
		snap.Tasks = append(snap.Tasks, copyTask(t))
	}
	for _, a := range s.artifacts {
		snap.Artifacts = append(snap.Artifacts, *a)
	}
	return snap
}

// Reset clears all collections and broadcasts the reset event. Callers
// must cancel schedule timers first so none fires against cleared state.
func (s *StateService) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = make(map[string]*agent.Agent)
	s.tasks = make(map[string]*task.Task)
	s.artifacts = make(map[string]*artifact.Artifact)
	s.logs = nil
	s.messages = nil
	s.context = ""
	s.hub.BroadcastEvent(ctx, ws.EventReset, struct{}{})
}

// copyAgent and copyTask clone slice fields too: returned copies outlive
// the state lock, so they must never alias a backing array a later
// mutation can touch.
func copyAgent(ag *agent.Agent) agent.Agent {
	out := *ag
	out.Tools = append([]string(nil), ag.Tools...)
	out.EnabledTools = append([]string(nil), ag.EnabledTools...)
	return out
}

func copyTask(t *task.Task) task.Task {
	out := *t
	out.Inputs = append([]string(nil), t.Inputs...)
	out.Outputs = append([]string(nil), t.Outputs...)
	return out
}
