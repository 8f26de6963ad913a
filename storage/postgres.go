package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"todo-api/domain"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id          BIGSERIAL PRIMARY KEY,
		text        TEXT        NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		archived_at TIMESTAMPTZ,
		sort_order  BIGINT      NOT NULL CHECK (sort_order >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_archived_at ON tasks(archived_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_sort_order ON tasks(sort_order)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at)`,
}

// Postgres stores tasks in PostgreSQL through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at url and verifies the connection.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) ActiveTasks(ctx context.Context) ([]domain.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE archived_at IS NULL ORDER BY sort_order ASC, id ASC`)
}

func (s *Postgres) ArchivedTasks(ctx context.Context) ([]domain.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE archived_at IS NOT NULL ORDER BY archived_at DESC, id DESC`)
}

func (s *Postgres) CreateTask(ctx context.Context, text string, now time.Time) (domain.Task, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (text, created_at, archived_at, sort_order)
		SELECT $1, $2, NULL, COALESCE(MAX(sort_order), 0) + 1 FROM tasks
		RETURNING `+taskColumns, text, now.Truncate(time.Millisecond))
	t, err := scanPostgresTask(row)
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (s *Postgres) UpdateTaskText(ctx context.Context, id int64, text string) (domain.Task, error) {
	return s.updateOne(ctx, id, `UPDATE tasks SET text = $1 WHERE id = $2 RETURNING `+taskColumns, text, id)
}

func (s *Postgres) ArchiveTask(ctx context.Context, id int64, at time.Time) (domain.Task, error) {
	return s.updateOne(ctx, id, `UPDATE tasks SET archived_at = $1 WHERE id = $2 RETURNING `+taskColumns, at.Truncate(time.Millisecond), id)
}

func (s *Postgres) RestoreTask(ctx context.Context, id int64) (domain.Task, error) {
	return s.updateOne(ctx, id, `UPDATE tasks SET archived_at = NULL WHERE id = $1 RETURNING `+taskColumns, id)
}

func (s *Postgres) ReorderTasks(ctx context.Context, updates []domain.ReorderItem) ([]domain.Task, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin reorder: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	updated := make([]domain.Task, 0, len(updates))
	for _, u := range updates {
		row := tx.QueryRow(ctx, `UPDATE tasks SET sort_order = $1 WHERE id = $2 RETURNING `+taskColumns, u.SortOrder, u.ID)
		t, err := scanPostgresTask(row)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reorder task %d: %w", u.ID, err)
		}
		updated = append(updated, t)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reorder: %w", err)
	}
	return updated, nil
}

func (s *Postgres) updateOne(ctx context.Context, id int64, query string, args ...any) (domain.Task, error) {
	t, err := scanPostgresTask(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.NotFound(taskEntity, id)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task %d: %w", id, err)
	}
	return t, nil
}

func (s *Postgres) query(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanPostgresTask(rows)
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

func scanPostgresTask(r rowScanner) (domain.Task, error) {
	var (
		t        domain.Task
		archived *time.Time
	)
	if err := r.Scan(&t.ID, &t.Text, &t.CreatedAt, &archived, &t.SortOrder); err != nil {
		return domain.Task{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	if archived != nil {
		at := archived.UTC()
		t.ArchivedAt = &at
	}
	return t, nil
}
