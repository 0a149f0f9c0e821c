package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/mission"
	"github.com/Strob0t/MissionDeck/internal/domain/task"
)

// fakeClock fires timers synchronously from Advance, so schedule
// behavior is tested without sleeping.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	f       func()
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// Advance moves the clock forward, firing due timers in order. Timers
// armed by a firing callback are honored within the same advance.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		c.now = next.when
		c.mu.Unlock()

		next.f()
	}
}

// runRecorder captures scheduler-triggered runs.
type runRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *runRecorder) run(_ context.Context, _ string, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, taskID)
}

func (r *runRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newSchedulerFixture() (*Scheduler, *StateService, *fakeClock, *runRecorder, *recordingHub) {
	state, hub := newTestState()
	clock := newFakeClock()
	rec := &runRecorder{}
	sched := NewScheduler(clock, state, rec.run)
	return sched, state, clock, rec, hub
}

func seedScheduled(state *StateService, mutate func(*task.Task)) string {
	ctx := context.Background()
	state.PutAgent(ctx, &agent.Agent{ID: "a1", Name: "Researcher", Status: agent.StatusIdle})
	tk := &task.Task{
		ID: "t1", Goal: "Refresh the report", Status: task.StatusPending,
		AssignedAgentID: "a1", MaxIterations: 3,
	}
	mutate(tk)
	state.PutTask(ctx, tk)
	return tk.ID
}

func TestScheduleRecurringFires(t *testing.T) {
	sched, state, clock, rec, hub := newSchedulerFixture()
	taskID := seedScheduled(state, func(tk *task.Task) {
		tk.RunIntervalMinutes = 5
		tk.IterationCount = 2
		tk.Outputs = []string{"stale"}
	})

	if !sched.Schedule(context.Background(), taskID) {
		t.Fatal("expected schedule to arm a timer")
	}
	if rec.count() != 0 {
		t.Fatal("nothing should run before the first interval")
	}

	clock.Advance(5 * time.Minute)

	if rec.count() != 1 {
		t.Fatalf("expected 1 run after first interval, got %d", rec.count())
	}
	tk, _ := state.GetTask(taskID)
	if tk.Status != task.StatusPending || tk.IterationCount != 0 || len(tk.Outputs) != 0 {
		t.Errorf("expected task reset before run, got %+v", tk)
	}

	clock.Advance(5 * time.Minute)
	if rec.count() != 2 {
		t.Fatalf("expected 2 runs after second interval, got %d", rec.count())
	}

	// The reset and the narration were broadcast each cycle.
	if hub.count("task_update") < 2 || hub.count("message") < 2 {
		t.Errorf("expected task_update and message per cycle, got %d/%d",
			hub.count("task_update"), hub.count("message"))
	}
}

func TestScheduleRecurringSkipsBusyAgent(t *testing.T) {
	sched, state, clock, rec, _ := newSchedulerFixture()
	taskID := seedScheduled(state, func(tk *task.Task) { tk.RunIntervalMinutes = 1 })

	sched.Schedule(context.Background(), taskID)

	state.UpdateAgent(context.Background(), "a1", func(a *agent.Agent) { a.Status = agent.StatusWorking })
	clock.Advance(time.Minute)

	if rec.count() != 0 {
		t.Fatalf("expected fire against busy agent to be skipped, got %d runs", rec.count())
	}
	tk, _ := state.GetTask(taskID)
	if tk.Status != task.StatusPending {
		t.Errorf("skipped fire must not touch the task, got %s", tk.Status)
	}

	// Once the agent frees up, the next interval runs normally.
	state.UpdateAgent(context.Background(), "a1", func(a *agent.Agent) { a.Status = agent.StatusIdle })
	clock.Advance(time.Minute)

	if rec.count() != 1 {
		t.Fatalf("expected 1 run after agent freed, got %d", rec.count())
	}
}

func TestScheduleOneShot(t *testing.T) {
	sched, state, clock, rec, hub := newSchedulerFixture()
	start := clock.Now().Add(90 * time.Second)
	taskID := seedScheduled(state, func(tk *task.Task) { tk.ScheduledStartTime = &start })

	if !sched.Schedule(context.Background(), taskID) {
		t.Fatal("expected schedule to arm a timer")
	}

	clock.Advance(89 * time.Second)
	if rec.count() != 0 {
		t.Fatal("one-shot fired early")
	}

	clock.Advance(time.Second)
	if rec.count() != 1 {
		t.Fatalf("expected one run at start time, got %d", rec.count())
	}
	if sched.Scheduled(taskID) {
		t.Error("one-shot timer should be gone after firing")
	}

	// No repeat.
	clock.Advance(10 * time.Minute)
	if rec.count() != 1 {
		t.Fatalf("one-shot must not repeat, got %d runs", rec.count())
	}

	foundNarration := false
	for _, e := range hub.all() {
		if e.Type != "message" {
			continue
		}
		if msg, ok := e.Payload.(mission.Message); ok && msg.Role == mission.RoleSystem {
			foundNarration = true
		}
	}
	if !foundNarration {
		t.Error("expected system narration messages for scheduling")
	}
}

func TestScheduleOneShotInPast(t *testing.T) {
	sched, state, clock, rec, _ := newSchedulerFixture()
	start := clock.Now().Add(-time.Minute)
	taskID := seedScheduled(state, func(tk *task.Task) { tk.ScheduledStartTime = &start })

	if sched.Schedule(context.Background(), taskID) {
		t.Fatal("expected past start time to be ignored")
	}
	clock.Advance(time.Hour)
	if rec.count() != 0 {
		t.Fatalf("expected no runs, got %d", rec.count())
	}
}

func TestScheduleNoScheduleFields(t *testing.T) {
	sched, state, _, _, _ := newSchedulerFixture()
	taskID := seedScheduled(state, func(*task.Task) {})

	if sched.Schedule(context.Background(), taskID) {
		t.Fatal("expected no timer for an unscheduled task")
	}
	if sched.Schedule(context.Background(), "missing") {
		t.Fatal("expected no timer for an unknown task")
	}
}

func TestCancelIdempotent(t *testing.T) {
	sched, state, clock, rec, _ := newSchedulerFixture()
	taskID := seedScheduled(state, func(tk *task.Task) { tk.RunIntervalMinutes = 1 })

	sched.Schedule(context.Background(), taskID)

	if !sched.Cancel(taskID) {
		t.Fatal("expected first cancel to report a removed timer")
	}
	if sched.Cancel(taskID) {
		t.Fatal("expected second cancel to be a no-op")
	}
	if sched.Cancel("missing") {
		t.Fatal("expected cancel of unknown task to be a no-op")
	}

	clock.Advance(time.Hour)
	if rec.count() != 0 {
		t.Fatalf("cancelled timer must never fire, got %d runs", rec.count())
	}
}

func TestCancelAll(t *testing.T) {
	sched, state, clock, rec, _ := newSchedulerFixture()
	taskID := seedScheduled(state, func(tk *task.Task) { tk.RunIntervalMinutes = 1 })
	sched.Schedule(context.Background(), taskID)

	sched.CancelAll()

	if sched.Scheduled(taskID) {
		t.Error("expected no timers after CancelAll")
	}
	clock.Advance(time.Hour)
	if rec.count() != 0 {
		t.Fatalf("expected no runs after CancelAll, got %d", rec.count())
	}
}
