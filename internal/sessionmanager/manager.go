// Package sessionmanager owns the set of sessions and their tasks: it
// serializes task starts per session, launches each task's Agent on a
// dedicated goroutine, and fans out its events to subscribers.
package sessionmanager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/agent"
	"github.com/kandev/androidctl/internal/collab"
	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/logger"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// ErrSessionNotFound is returned by any operation addressing a session id
// the Manager has never created.
var ErrSessionNotFound = errors.New("session not found")

// ErrTaskNotFound is returned by Query when the TaskStore has no task with
// the given id.
var ErrTaskNotFound = errors.New("task not found")

// runner is the subset of *agent.Agent's surface the Manager depends on.
// Tests substitute a stub; production wiring passes a real *agent.Agent
// built per task by AgentFactory.
type runner interface {
	Run(ctx context.Context, task v1.Task, sink agent.Sink) agent.Result
}

// AgentFactory builds the Agent (or stand-in) that will run a single task.
type AgentFactory func(cfg v1.AgentConfig) runner

type session struct {
	mu            sync.Mutex // serializes Start/Stop for this session
	id            string
	createdAt     time.Time
	cancel        context.CancelFunc
	runningTaskID string

	subsMu sync.Mutex
	subs   map[string]*subscriber
}

type subscriber struct {
	id   string
	ch   chan v1.Event
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Manager owns every Session and its live Task. It holds non-owning
// references to TaskStore (for persistence) and an AgentFactory (for
// constructing the per-task Agent against shared collaborators).
type Manager struct {
	taskStore         collab.TaskStore
	agentFactory      AgentFactory
	subscriberBacklog int
	logger            *logger.Logger

	mu           sync.Mutex
	sessions     map[string]*session
	taskSessions map[string]*session
}

// New creates a Manager. subscriberBacklog bounds each subscriber's buffered
// event queue (see Subscribe).
func New(taskStore collab.TaskStore, factory AgentFactory, subscriberBacklog int, log *logger.Logger) *Manager {
	if subscriberBacklog <= 0 {
		subscriberBacklog = 256
	}
	return &Manager{
		taskStore:         taskStore,
		agentFactory:      factory,
		subscriberBacklog: subscriberBacklog,
		logger:            log,
		sessions:          make(map[string]*session),
		taskSessions:      make(map[string]*session),
	}
}

// CreateSession allocates a new session and returns its id.
func (m *Manager) CreateSession() string {
	id := uuid.NewString()
	s := &session{id: id, createdAt: time.Now(), subs: make(map[string]*subscriber)}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	return id
}

func (m *Manager) getSession(sessionID string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Start allocates a task under sessionID and launches its Agent on a
// dedicated goroutine, returning immediately with the new task's id. Fails
// with apperrors.SessionBusy if sessionID already has a running task.
func (m *Manager) Start(ctx context.Context, sessionID, description string, cfg v1.AgentConfig) (string, error) {
	s, err := m.getSession(sessionID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningTaskID != "" {
		return "", apperrors.SessionBusyErr(sessionID)
	}

	taskID := uuid.NewString()
	now := time.Now()
	task := v1.Task{
		ID:           taskID,
		SessionID:    sessionID,
		Description:  description,
		Status:       v1.TaskRunning,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := m.taskStore.CreateTask(ctx, task); err != nil {
		return "", err
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	s.runningTaskID = taskID
	s.cancel = cancel

	m.mu.Lock()
	m.taskSessions[taskID] = s
	m.mu.Unlock()

	a := m.agentFactory(cfg)
	go m.runTask(taskCtx, s, task, a)

	return taskID, nil
}

// Stop signals sessionID's running task's cancellation token. Idempotent:
// stopping a session with no running task is a no-op.
func (m *Manager) Stop(sessionID string) error {
	s, err := m.getSession(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (m *Manager) runTask(ctx context.Context, s *session, task v1.Task, a runner) {
	result := a.Run(ctx, task, func(e v1.Event) { m.broadcast(s, e) })

	endTime := time.Now()
	task.Status = result.Status
	task.EndTime = &endTime
	if result.Status == v1.TaskCompleted {
		task.Result = result.Message
	} else {
		task.ErrorMessage = result.Message
	}
	if err := m.taskStore.UpdateTaskStatus(context.Background(), task.ID, result.Status, task.Result, task.ErrorMessage); err != nil {
		m.logger.Warn("update task status failed", zap.String("taskId", task.ID), zap.Error(err))
	}

	s.mu.Lock()
	if s.runningTaskID == task.ID {
		s.runningTaskID = ""
		s.cancel = nil
	}
	s.mu.Unlock()

	m.mu.Lock()
	delete(m.taskSessions, task.ID)
	m.mu.Unlock()
}

// BroadcastToTask delivers e to every subscriber of the session currently
// running taskID. Used to route events a collaborator produces outside the
// per-task Sink closure (StepTracker's OverflowEvent, emitted from its own
// background flusher rather than from inside Agent.Run) back to the right
// session's subscribers. A taskID with no running session (already finished,
// or never started) is silently dropped — there is no subscriber left to
// receive it.
func (m *Manager) BroadcastToTask(taskID string, e v1.Event) {
	m.mu.Lock()
	s, ok := m.taskSessions[taskID]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.broadcast(s, e)
}

// Subscribe registers a new subscriber to receive every event for sessionID's tasks,
// in delivery order, until the returned unsubscribe func is called or the
// subscriber is disconnected for falling SubscriberBacklog events behind.
// The returned channel is closed on disconnect; callers should range over
// it rather than polling.
func (m *Manager) Subscribe(sessionID string) (<-chan v1.Event, func(), error) {
	s, err := m.getSession(sessionID)
	if err != nil {
		return nil, nil, err
	}

	sub := &subscriber{id: uuid.NewString(), ch: make(chan v1.Event, m.subscriberBacklog)}

	s.subsMu.Lock()
	s.subs[sub.id] = sub
	s.subsMu.Unlock()

	unsubscribe := func() {
		s.subsMu.Lock()
		delete(s.subs, sub.id)
		s.subsMu.Unlock()
		sub.close()
	}
	return sub.ch, unsubscribe, nil
}

// broadcast delivers e to every subscriber of s. A subscriber whose buffer
// is full is disconnected rather than allowed to stall delivery to others.
func (m *Manager) broadcast(s *session, e v1.Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, sub := range s.subs {
		select {
		case sub.ch <- e:
		default:
			m.logger.Warn("disconnecting slow subscriber", zap.String("sessionId", s.id), zap.String("subscriberId", id))
			sub.close()
			delete(s.subs, id)
		}
	}
}

// Query returns the current state of taskID, preferring the TaskStore as
// the durable source of truth.
func (m *Manager) Query(ctx context.Context, taskID string) (v1.Task, error) {
	task, err := m.taskStore.GetTask(ctx, taskID)
	if err != nil {
		return v1.Task{}, err
	}
	if task.ID == "" {
		return v1.Task{}, ErrTaskNotFound
	}
	return task, nil
}

// ListTasks delegates to the TaskStore, the durable index of every task
// across every session.
func (m *Manager) ListTasks(ctx context.Context, filter v1.TaskFilter) ([]v1.Task, error) {
	return m.taskStore.ListTasks(ctx, filter)
}
