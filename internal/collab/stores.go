package collab

import (
	"context"

	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// TaskStore is the durable store for task metadata and step history. Must
// be safe for concurrent use by multiple sessions.
type TaskStore interface {
	CreateTask(ctx context.Context, task v1.Task) error
	UpdateTaskStatus(ctx context.Context, taskID string, status v1.TaskStatus, result, errMsg string) error
	// AppendSteps persists a batch of steps for one task, in order.
	// Idempotent: replaying the same (taskID, StepNumber) pairs leaves the
	// store in the same state as a single append.
	AppendSteps(ctx context.Context, taskID string, steps []v1.StepRecord) error
	GetTask(ctx context.Context, taskID string) (v1.Task, error)
	ListTasks(ctx context.Context, filter v1.TaskFilter) ([]v1.Task, error)
	GetSteps(ctx context.Context, taskID string, offset, limit int) ([]v1.StepRecord, error)
	GetScreenshots(ctx context.Context, taskID string) ([]string, error)
}

// BlobStore is the durable store for screenshot bytes. Keys are of the form
// "task/<taskId>/step/<n>.png"; Put returns a retrieval URL retained
// unmodified in the StepRecord.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}
