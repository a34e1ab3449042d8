package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// CreateTask inserts a new task row. task.Status is expected to be
// v1.TaskRunning; callers set CreatedAt/LastActivity.
func (s *Store) CreateTask(ctx context.Context, task v1.Task) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO tasks (id, session_id, description, status, created_at, last_activity, end_time, result, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), task.ID, task.SessionID, task.Description, task.Status, task.CreatedAt, task.LastActivity, task.EndTime, task.Result, task.ErrorMessage)
	return err
}

// UpdateTaskStatus transitions taskID to status and records its terminal
// result/error, stamping end_time. Called exactly once per task, when its
// Agent run returns.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status v1.TaskStatus, result, errMsg string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tasks SET status = ?, result = ?, error_message = ?, end_time = ?, last_activity = ?
		WHERE id = ?
	`), status, result, errMsg, now, now, taskID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task not found: %s", taskID)
	}
	return nil
}

// GetTask returns taskID's row, or a zero-value Task (ID == "") if it does
// not exist; collab.TaskStore callers treat ID == "" as not-found.
func (s *Store) GetTask(ctx context.Context, taskID string) (v1.Task, error) {
	var t v1.Task
	err := s.ro.QueryRowContext(ctx, s.ro.Rebind(`
		SELECT id, session_id, description, status, created_at, last_activity, end_time, result, error_message
		FROM tasks WHERE id = ?
	`), taskID).Scan(&t.ID, &t.SessionID, &t.Description, &t.Status, &t.CreatedAt, &t.LastActivity, &t.EndTime, &t.Result, &t.ErrorMessage)
	if err == sql.ErrNoRows {
		return v1.Task{}, nil
	}
	if err != nil {
		return v1.Task{}, err
	}
	return t, nil
}

// ListTasks returns tasks matching filter, newest first, with filter.Limit
// (default 100) / filter.Offset pagination.
func (s *Store) ListTasks(ctx context.Context, filter v1.TaskFilter) ([]v1.Task, error) {
	query := `SELECT id, session_id, description, status, created_at, last_activity, end_time, result, error_message FROM tasks WHERE 1=1`
	var args []interface{}

	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.ro.QueryContext(ctx, s.ro.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []v1.Task
	for rows.Next() {
		var t v1.Task
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Description, &t.Status, &t.CreatedAt, &t.LastActivity, &t.EndTime, &t.Result, &t.ErrorMessage); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
