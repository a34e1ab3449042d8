package sessionmanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kandev/androidctl/internal/agent"
	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/logger"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

type fakeStore struct {
	mu    sync.Mutex
	tasks map[string]v1.Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: make(map[string]v1.Task)}
}

func (f *fakeStore) CreateTask(ctx context.Context, task v1.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task
	return nil
}
func (f *fakeStore) UpdateTaskStatus(ctx context.Context, taskID string, status v1.TaskStatus, result, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[taskID]
	t.Status = status
	t.Result = result
	t.ErrorMessage = errMsg
	f.tasks[taskID] = t
	return nil
}
func (f *fakeStore) AppendSteps(ctx context.Context, taskID string, steps []v1.StepRecord) error {
	return nil
}
func (f *fakeStore) GetTask(ctx context.Context, taskID string) (v1.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[taskID], nil
}
func (f *fakeStore) ListTasks(ctx context.Context, filter v1.TaskFilter) ([]v1.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []v1.Task
	for _, t := range f.tasks {
		if filter.SessionID != "" && t.SessionID != filter.SessionID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
func (f *fakeStore) GetSteps(ctx context.Context, taskID string, offset, limit int) ([]v1.StepRecord, error) {
	return nil, nil
}
func (f *fakeStore) GetScreenshots(ctx context.Context, taskID string) ([]string, error) {
	return nil, nil
}

// stubRunner finishes immediately, emitting the events its test configures.
type stubRunner struct {
	events []v1.Event
	result agent.Result
	block  chan struct{} // if non-nil, Run waits for ctx.Done() or a close
}

func (s *stubRunner) Run(ctx context.Context, task v1.Task, sink agent.Sink) agent.Result {
	if s.block != nil {
		select {
		case <-ctx.Done():
			return agent.Result{Status: v1.TaskStopped, Message: "cancelled"}
		case <-s.block:
		}
	}
	for _, e := range s.events {
		sink(e)
	}
	return s.result
}

func newTestManager(t *testing.T, factory AgentFactory) (*Manager, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return New(store, factory, 4, logger.Default()), store
}

func TestCreateSessionAndStart(t *testing.T) {
	stub := &stubRunner{result: agent.Result{Status: v1.TaskCompleted, Message: "done"}}
	m, store := newTestManager(t, func(v1.AgentConfig) runner { return stub })

	sid := m.CreateSession()
	taskID, err := m.Start(context.Background(), sid, "do a thing", v1.DefaultAgentConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		task, _ := store.GetTask(context.Background(), taskID)
		if task.Status.IsTerminal() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for task to finish")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartRejectsConcurrentTaskWithSessionBusy(t *testing.T) {
	block := make(chan struct{})
	stub := &stubRunner{block: block, result: agent.Result{Status: v1.TaskCompleted}}
	m, _ := newTestManager(t, func(v1.AgentConfig) runner { return stub })

	sid := m.CreateSession()
	if _, err := m.Start(context.Background(), sid, "first", v1.DefaultAgentConfig()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	_, err := m.Start(context.Background(), sid, "second", v1.DefaultAgentConfig())
	if !apperrors.Is(err, apperrors.SessionBusy) {
		t.Fatalf("expected SessionBusy, got %v", err)
	}
	close(block)
}

func TestStartUnknownSessionFails(t *testing.T) {
	m, _ := newTestManager(t, func(v1.AgentConfig) runner { return &stubRunner{} })
	if _, err := m.Start(context.Background(), "nope", "x", v1.DefaultAgentConfig()); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStopCancelsRunningTask(t *testing.T) {
	block := make(chan struct{})
	stub := &stubRunner{block: block}
	m, store := newTestManager(t, func(v1.AgentConfig) runner { return stub })

	sid := m.CreateSession()
	taskID, err := m.Start(context.Background(), sid, "hang", v1.DefaultAgentConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Stop(sid); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		task, _ := store.GetTask(context.Background(), taskID)
		if task.Status == v1.TaskStopped {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for stop to take effect")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Session should now accept a new task.
	if _, err := m.Start(context.Background(), sid, "next", v1.DefaultAgentConfig()); err != nil {
		t.Fatalf("expected Start to succeed after Stop, got %v", err)
	}
}

func TestSubscribeReceivesEventsInOrder(t *testing.T) {
	events := []v1.Event{
		v1.NewStepEvent(v1.StepEvent{TaskID: "t", StepNumber: 1}),
		v1.NewStepEvent(v1.StepEvent{TaskID: "t", StepNumber: 2}),
		v1.NewTerminalEvent(v1.TerminalEvent{TaskID: "t", Status: v1.TaskCompleted}),
	}
	stub := &stubRunner{events: events, result: agent.Result{Status: v1.TaskCompleted}}
	m, _ := newTestManager(t, func(v1.AgentConfig) runner { return stub })

	sid := m.CreateSession()
	ch, unsubscribe, err := m.Subscribe(sid)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsubscribe()

	if _, err := m.Start(context.Background(), sid, "go", v1.DefaultAgentConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var got []v1.Event
	deadline := time.After(time.Second)
	for len(got) < len(events) {
		select {
		case e := <-ch:
			got = append(got, e)
		case <-deadline:
			t.Fatalf("timed out, got %d/%d events", len(got), len(events))
		}
	}
	for i, e := range got {
		if e.Kind != events[i].Kind {
			t.Fatalf("event %d: expected kind %v, got %v", i, events[i].Kind, e.Kind)
		}
	}
}

func TestSlowSubscriberIsDisconnected(t *testing.T) {
	var events []v1.Event
	for i := 0; i < 10; i++ {
		events = append(events, v1.NewStepEvent(v1.StepEvent{TaskID: "t", StepNumber: i}))
	}
	stub := &stubRunner{events: events, result: agent.Result{Status: v1.TaskCompleted}}
	m, _ := newTestManager(t, func(v1.AgentConfig) runner { return stub }) // backlog=4

	sid := m.CreateSession()
	ch, _, err := m.Subscribe(sid)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := m.Start(context.Background(), sid, "go", v1.DefaultAgentConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Let the task flood the channel well past its backlog before this test
	// starts draining it, so the overflow is deterministic rather than a
	// race against the scheduler.
	time.Sleep(100 * time.Millisecond)

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // disconnected, as expected
			}
		case <-deadline:
			t.Fatal("timed out waiting for slow subscriber disconnect")
		}
	}
}
