package sqlite

import (
	"context"
	"encoding/json"

	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// upsertStepSQL is one portable statement for both SQLite (3.24+) and
// PostgreSQL: both support INSERT ... ON CONFLICT ... DO UPDATE. Replaying
// the same (task_id, step_number) pair overwrites the row instead of
// failing the primary key constraint, per AppendSteps' idempotency
// contract.
const upsertStepSQL = `
	INSERT INTO steps (task_id, step_number, type, thought, action, outcome, error, screenshot_ref, elapsed_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (task_id, step_number) DO UPDATE SET
		type = excluded.type,
		thought = excluded.thought,
		action = excluded.action,
		outcome = excluded.outcome,
		error = excluded.error,
		screenshot_ref = excluded.screenshot_ref,
		elapsed_ms = excluded.elapsed_ms,
		created_at = excluded.created_at
`

// AppendSteps upserts each step in order within a single transaction, so a
// batch either lands entirely or not at all.
func (s *Store) AppendSteps(ctx context.Context, taskID string, steps []v1.StepRecord) error {
	if len(steps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := tx.Rebind(upsertStepSQL)
	for _, step := range steps {
		actionJSON, err := marshalOrEmpty(step.Action)
		if err != nil {
			return err
		}
		errJSON, err := marshalOrEmpty(step.Error)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			taskID, step.StepNumber, step.Type, step.Thought, actionJSON, step.Outcome, errJSON, step.ScreenshotRef, step.ElapsedMs, step.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSteps returns taskID's steps in order, paginated by offset/limit
// (limit <= 0 means no bound).
func (s *Store) GetSteps(ctx context.Context, taskID string, offset, limit int) ([]v1.StepRecord, error) {
	query := `
		SELECT step_number, type, thought, action, outcome, error, screenshot_ref, elapsed_ms, created_at
		FROM steps WHERE task_id = ? ORDER BY step_number ASC
	`
	args := []interface{}{taskID}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.ro.QueryContext(ctx, s.ro.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []v1.StepRecord
	for rows.Next() {
		var (
			rec        v1.StepRecord
			actionJSON string
			errJSON    string
		)
		rec.TaskID = taskID
		if err := rows.Scan(&rec.StepNumber, &rec.Type, &rec.Thought, &actionJSON, &rec.Outcome, &errJSON, &rec.ScreenshotRef, &rec.ElapsedMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if actionJSON != "" {
			var action v1.Action
			if err := json.Unmarshal([]byte(actionJSON), &action); err != nil {
				return nil, err
			}
			rec.Action = &action
		}
		if errJSON != "" {
			var errPayload v1.ErrorPayload
			if err := json.Unmarshal([]byte(errJSON), &errPayload); err != nil {
				return nil, err
			}
			rec.Error = &errPayload
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetScreenshots returns the ordered list of non-empty screenshot URLs
// recorded for taskID.
func (s *Store) GetScreenshots(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.ro.QueryContext(ctx, s.ro.Rebind(`
		SELECT screenshot_ref FROM steps
		WHERE task_id = ? AND screenshot_ref != ''
		ORDER BY step_number ASC
	`), taskID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func marshalOrEmpty(v interface{}) (string, error) {
	switch val := v.(type) {
	case *v1.Action:
		if val == nil {
			return "", nil
		}
	case *v1.ErrorPayload:
		if val == nil {
			return "", nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	s := string(b)
	if s == "null" {
		return "", nil
	}
	return s, nil
}
