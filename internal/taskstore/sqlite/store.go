// Package sqlite provides the reference TaskStore, a SQLite/PostgreSQL
// persistence layer for task metadata and step history.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kandev/androidctl/internal/db"
)

// Store is the reference collab.TaskStore, backed by a writer/reader split
// *sqlx.DB pool. Queries are written with "?" placeholders and rebound per
// dialect via sqlx.Rebind, so the same Store works against SQLite or
// PostgreSQL.
type Store struct {
	db     *sqlx.DB // writer
	ro     *sqlx.DB // reader
	driver string
}

// NewWithPool wraps an already-opened Pool, initializing the schema if
// needed. driver is one of dialect.SQLite3 / dialect.PGX.
func NewWithPool(pool *db.Pool, driver string) (*Store, error) {
	s := &Store{db: pool.Writer(), ro: pool.Reader(), driver: driver}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize task store schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	if err := s.initTasksSchema(); err != nil {
		return err
	}
	if err := s.initStepsSchema(); err != nil {
		return err
	}
	return s.ensureIndexes()
}

func (s *Store) initTasksSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'running',
		created_at TIMESTAMP NOT NULL,
		last_activity TIMESTAMP NOT NULL,
		end_time TIMESTAMP,
		result TEXT DEFAULT '',
		error_message TEXT DEFAULT ''
	);
	`)
	return err
}

func (s *Store) initStepsSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS steps (
		task_id TEXT NOT NULL,
		step_number INTEGER NOT NULL,
		type TEXT NOT NULL,
		thought TEXT DEFAULT '',
		action TEXT DEFAULT '',
		outcome TEXT DEFAULT '',
		error TEXT DEFAULT '',
		screenshot_ref TEXT DEFAULT '',
		elapsed_ms INTEGER DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (task_id, step_number),
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);
	`)
	return err
}

func (s *Store) ensureIndexes() error {
	_, err := s.db.Exec(`
	CREATE INDEX IF NOT EXISTS idx_tasks_session_id ON tasks(session_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_steps_task_id ON steps(task_id);
	`)
	return err
}

// Close is a no-op: Store does not own the underlying Pool. The
// composition root that built the Pool is responsible for closing it.
func (s *Store) Close() error {
	return nil
}
