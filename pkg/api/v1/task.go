package v1

import "time"

// TaskStatus is the tagged state of a Task's lifecycle.
//
// Invariant: transitions are monotonic, running -> exactly one of
// {completed, error, stopped}.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskError     TaskStatus = "error"
	TaskStopped   TaskStatus = "stopped"
)

// IsTerminal reports whether status is one of the three terminal states.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskError || s == TaskStopped
}

// Task is one natural-language instruction run to completion (or
// cancellation) by a single Agent.
//
// Invariants: EndTime is set iff Status.IsTerminal(); LastActivity >=
// CreatedAt.
type Task struct {
	ID           string     `json:"id" db:"id"`
	SessionID    string     `json:"sessionId" db:"session_id"`
	Description  string     `json:"description" db:"description"`
	Status       TaskStatus `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	LastActivity time.Time  `json:"lastActivity" db:"last_activity"`
	EndTime      *time.Time `json:"endTime,omitempty" db:"end_time"`
	Result       string     `json:"result,omitempty" db:"result"`
	ErrorMessage string     `json:"errorMessage,omitempty" db:"error_message"`
}

// TaskFilter narrows SessionManager.ListTasks / TaskStore.ListTasks queries.
type TaskFilter struct {
	SessionID string
	Status    TaskStatus
	Limit     int
	Offset    int
}

// Session is a client-scoped container holding at most one running Task and
// the set of subscribers receiving its events.
type Session struct {
	ID               string    `json:"id" db:"id"`
	CurrentTaskID    string    `json:"currentTaskId,omitempty" db:"current_task_id"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}
