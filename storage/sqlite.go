package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"todo-api/domain"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		text        TEXT    NOT NULL,
		created_at  INTEGER NOT NULL,
		archived_at INTEGER,
		sort_order  INTEGER NOT NULL CHECK (sort_order >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_archived_at ON tasks(archived_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_sort_order ON tasks(sort_order)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at)`,
}

// SQLite stores tasks in an embedded SQLite database. Timestamps are kept as
// Unix milliseconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at dsn. ":memory:" gives a private
// in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %w", err)
	}
	// A single connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db}
	for _, pragma := range []string{`PRAGMA foreign_keys = ON`, `PRAGMA busy_timeout = 5000`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}
	return s, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) ActiveTasks(ctx context.Context) ([]domain.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE archived_at IS NULL ORDER BY sort_order ASC, id ASC`)
}

func (s *SQLite) ArchivedTasks(ctx context.Context) ([]domain.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE archived_at IS NOT NULL ORDER BY archived_at DESC, id DESC`)
}

// CreateTask computes the next sort order inside the INSERT so concurrent
// creates cannot share a value.
func (s *SQLite) CreateTask(ctx context.Context, text string, now time.Time) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (text, created_at, archived_at, sort_order)
		SELECT ?, ?, NULL, COALESCE(MAX(sort_order), 0) + 1 FROM tasks
		RETURNING `+taskColumns, text, now.UnixMilli())
	t, err := scanSQLiteTask(row)
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (s *SQLite) UpdateTaskText(ctx context.Context, id int64, text string) (domain.Task, error) {
	return s.updateOne(ctx, id, `UPDATE tasks SET text = ? WHERE id = ? RETURNING `+taskColumns, text, id)
}

func (s *SQLite) ArchiveTask(ctx context.Context, id int64, at time.Time) (domain.Task, error) {
	return s.updateOne(ctx, id, `UPDATE tasks SET archived_at = ? WHERE id = ? RETURNING `+taskColumns, at.UnixMilli(), id)
}

func (s *SQLite) RestoreTask(ctx context.Context, id int64) (domain.Task, error) {
	return s.updateOne(ctx, id, `UPDATE tasks SET archived_at = NULL WHERE id = ? RETURNING `+taskColumns, id)
}

func (s *SQLite) ReorderTasks(ctx context.Context, updates []domain.ReorderItem) ([]domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin reorder: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	updated := make([]domain.Task, 0, len(updates))
	for _, u := range updates {
		row := tx.QueryRowContext(ctx, `UPDATE tasks SET sort_order = ? WHERE id = ? RETURNING `+taskColumns, u.SortOrder, u.ID)
		t, err := scanSQLiteTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reorder task %d: %w", u.ID, err)
		}
		updated = append(updated, t)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reorder: %w", err)
	}
	return updated, nil
}

func (s *SQLite) updateOne(ctx context.Context, id int64, query string, args ...any) (domain.Task, error) {
	t, err := scanSQLiteTask(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.NotFound(taskEntity, id)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task %d: %w", id, err)
	}
	return t, nil
}

func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(r rowScanner) (domain.Task, error) {
	var (
		t        domain.Task
		created  int64
		archived sql.NullInt64
	)
	if err := r.Scan(&t.ID, &t.Text, &created, &archived, &t.SortOrder); err != nil {
		return domain.Task{}, err
	}
	t.CreatedAt = time.UnixMilli(created).UTC()
	if archived.Valid {
		at := time.UnixMilli(archived.Int64).UTC()
		t.ArchivedAt = &at
	}
	return t, nil
}
