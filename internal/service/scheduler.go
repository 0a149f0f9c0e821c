package service

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/mission"
	"github.com/Strob0t/MissionDeck/internal/domain/task"
)

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time and timer creation so schedule behavior is
// testable without sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is the production clock backed by the time package.
var RealClock Clock = realClock{}

// RunFunc starts an agent run for the given agent/task pair.
type RunFunc func(ctx context.Context, agentID, taskID string)

// Scheduler owns the timers for delayed and recurring tasks. At most one
// timer exists per task; a recurring task re-arms itself on every fire,
// so the cadence is fixed regardless of run duration. A fire against a
// busy agent is skipped, never queued.
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	state  *StateService
	run    RunFunc
	timers map[string]Timer
}

// NewScheduler creates a Scheduler. clock may be RealClock.
func NewScheduler(clock Clock, state *StateService, run RunFunc) *Scheduler {
	return &Scheduler{
		clock:  clock,
		state:  state,
		run:    run,
		timers: make(map[string]Timer),
	}
}

// Schedule arms a timer for the task based on its schedule fields:
// RunIntervalMinutes wins over ScheduledStartTime when both are set. A
// one-shot start time that is not strictly in the future is ignored.
// Returns false when the task has no usable schedule.
func (s *Scheduler) Schedule(ctx context.Context, taskID string) bool {
	t, ok := s.state.GetTask(taskID)
	if !ok {
		return false
	}

	switch {
	case t.Recurring():
		interval := time.Duration(t.RunIntervalMinutes) * time.Minute
		s.arm(taskID, interval, func() { s.recurringFire(taskID, interval) })
		s.state.AppendMessage(ctx, mission.Message{
			Role:    mission.RoleSystem,
			Content: "Scheduled recurring task (every " + strconv.Itoa(t.RunIntervalMinutes) + " min): " + t.Goal,
		})
		return true

	case t.ScheduledStartTime != nil:
		delay := t.ScheduledStartTime.Sub(s.clock.Now())
		if delay <= 0 {
			slog.Warn("scheduled start time already passed, ignoring", "task_id", taskID)
			return false
		}
		s.arm(taskID, delay, func() { s.oneShotFire(taskID) })
		s.state.AppendMessage(ctx, mission.Message{
			Role:    mission.RoleSystem,
			Content: "Task scheduled to start in " + strconv.Itoa(int(delay.Round(time.Second).Seconds())) + "s: " + t.Goal,
		})
		return true
	}
	return false
}

// Cancel stops and removes the task's timer if one exists. Safe to call
// for unknown or already-cancelled tasks.
func (s *Scheduler) Cancel(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.timers[taskID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.timers, taskID)
	return true
}

// Scheduled reports whether the task currently has an armed timer.
func (s *Scheduler) Scheduled(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[taskID]
	return ok
}

// CancelAll stops every timer. Used on reset and shutdown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) arm(taskID string, d time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[taskID]; ok {
		old.Stop()
	}
	s.timers[taskID] = s.clock.AfterFunc(d, fire)
}

// recurringFire runs one scheduled cycle. The next timer is armed before
// the run starts so the cadence never drifts with run duration; a cycle
// arriving while the agent is still working is skipped.
func (s *Scheduler) recurringFire(taskID string, interval time.Duration) {
	s.mu.Lock()
	if _, ok := s.timers[taskID]; !ok {
		s.mu.Unlock()
		return
	}
	s.timers[taskID] = s.clock.AfterFunc(interval, func() { s.recurringFire(taskID, interval) })
	s.mu.Unlock()

	ctx := context.Background()
	t, ok := s.state.GetTask(taskID)
	if !ok {
		s.Cancel(taskID)
		return
	}
	if st, ok := s.state.AgentStatus(t.AssignedAgentID); ok && st == agent.StatusWorking {
		slog.Debug("recurring fire skipped, agent busy", "task_id", taskID)
		return
	}

	s.state.UpdateTask(ctx, taskID, func(t *task.Task) {
		t.Status = task.StatusPending
		t.IterationCount = 0
		t.Outputs = nil
	})
	s.state.AppendMessage(ctx, mission.Message{
		Role:    mission.RoleSystem,
		Content: "Running scheduled task: " + t.Goal,
	})
	s.run(ctx, t.AssignedAgentID, taskID)
}

func (s *Scheduler) oneShotFire(taskID string) {
	s.mu.Lock()
	delete(s.timers, taskID)
	s.mu.Unlock()

	ctx := context.Background()
	t, ok := s.state.GetTask(taskID)
	if !ok {
		return
	}
	s.state.AppendMessage(ctx, mission.Message{
		Role:    mission.RoleSystem,
		Content: "Starting scheduled task: " + t.Goal,
	})
	s.run(ctx, t.AssignedAgentID, taskID)
}
