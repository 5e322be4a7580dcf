// Package store is the local SQLite persistence layer for scheduled
// tasks and their linkage to external calendar events, following the
// connection/migration idiom of this module's teacher's internal/db
// package but shaped around SPEC_FULL.md's tasks/event_map schema.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store wraps a SQLite connection holding tasks and their calendar
// event linkage.
type Store struct {
	db *sql.DB
}

// New opens path (creating it if absent) and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS tasks (
			id        TEXT PRIMARY KEY,
			title     TEXT NOT NULL,
			parent_id TEXT REFERENCES tasks(id)
		);

		CREATE TABLE IF NOT EXISTS event_map (
			task_id           TEXT NOT NULL REFERENCES tasks(id),
			calendar_id       TEXT NOT NULL,
			calendar_event_id TEXT NOT NULL,
			UNIQUE(calendar_id, calendar_event_id)
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
		CREATE INDEX IF NOT EXISTS idx_event_map_task ON event_map(task_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating tasks/event_map tables: %w", err)
	}
	return nil
}

// UpsertSimple persists a simple task and its single external event
// linkage in one transaction, per spec.md §4.8.3.
func (s *Store) UpsertSimple(ctx context.Context, taskID, title, calendarID, calendarEventID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertTask(ctx, tx, taskID, title, nil); err != nil {
		return err
	}
	if err := upsertEventMap(ctx, tx, taskID, calendarID, calendarEventID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertParent persists the parent row of a complex task with no
// event_map row of its own, per spec.md §4.8.3.
func (s *Store) UpsertParent(ctx context.Context, parentID, title string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertTask(ctx, tx, parentID, title, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertSubtask persists one subtask row and its external event linkage,
// tolerating independent calls per subtask so a batch's partial
// successes survive even when sibling subtasks failed externally.
func (s *Store) UpsertSubtask(ctx context.Context, subtaskID, parentID, title, calendarID, calendarEventID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertTask(ctx, tx, subtaskID, title, &parentID); err != nil {
		return err
	}
	if err := upsertEventMap(ctx, tx, subtaskID, calendarID, calendarEventID); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertTask(ctx context.Context, tx *sql.Tx, id, title string, parentID *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (id, title, parent_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, parent_id = excluded.parent_id
	`, id, title, parentID)
	if err != nil {
		return fmt.Errorf("upserting task %s: %w", id, err)
	}
	return nil
}

func upsertEventMap(ctx context.Context, tx *sql.Tx, taskID, calendarID, calendarEventID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_map WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clearing event_map for task %s: %w", taskID, err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO event_map (task_id, calendar_id, calendar_event_id) VALUES (?, ?, ?)
		ON CONFLICT(calendar_id, calendar_event_id) DO UPDATE SET task_id = excluded.task_id
	`, taskID, calendarID, calendarEventID)
	if err != nil {
		return fmt.Errorf("upserting event_map for task %s: %w", taskID, err)
	}
	return nil
}

// EventMapping links a persisted task to its external calendar event.
type EventMapping struct {
	TaskID          string
	CalendarID      string
	CalendarEventID string
}

// MappingForTask returns the single event mapping for a simple task, if
// any (zero rows for a parent task, which never gets one).
func (s *Store) MappingForTask(ctx context.Context, taskID string) (EventMapping, bool, error) {
	var m EventMapping
	m.TaskID = taskID
	err := s.db.QueryRowContext(ctx, `
		SELECT calendar_id, calendar_event_id FROM event_map WHERE task_id = ?
	`, taskID).Scan(&m.CalendarID, &m.CalendarEventID)
	if err == sql.ErrNoRows {
		return EventMapping{}, false, nil
	}
	if err != nil {
		return EventMapping{}, false, fmt.Errorf("querying event_map for task %s: %w", taskID, err)
	}
	return m, true, nil
}

// MappingsForParent returns the event mappings of every child task of
// parentID (a complex task's subtasks).
func (s *Store) MappingsForParent(ctx context.Context, parentID string) ([]EventMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT em.task_id, em.calendar_id, em.calendar_event_id
		FROM event_map em
		JOIN tasks t ON t.id = em.task_id
		WHERE t.parent_id = ?
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying event_map for parent %s: %w", parentID, err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []EventMapping
	for rows.Next() {
		var m EventMapping
		if err := rows.Scan(&m.TaskID, &m.CalendarID, &m.CalendarEventID); err != nil {
			return nil, fmt.Errorf("scanning event_map row: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// DeleteTaskCascade removes taskID, any of its child rows, and their
// event_map rows, in one transaction. It does not itself call the
// calendar bridge — callers delete the external events first and pass
// only the local cleanup here.
func (s *Store) DeleteTaskCascade(ctx context.Context, taskID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_map WHERE task_id IN (SELECT id FROM tasks WHERE id = ? OR parent_id = ?)`, taskID, taskID); err != nil {
		return fmt.Errorf("deleting event_map rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE parent_id = ?`, taskID); err != nil {
		return fmt.Errorf("deleting child task rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("deleting task row: %w", err)
	}
	return tx.Commit()
}
