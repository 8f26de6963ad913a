package storage

import (
	"context"
	"strings"

	"todo-api/domain"
)

// Store is a task store that owns a database connection.
type Store interface {
	domain.TaskStore
	// Migrate creates the tasks table and its indexes if they are missing.
	Migrate(ctx context.Context) error
	Close() error
}

// Open selects the backend from the URL scheme. postgres:// and
// postgresql:// URLs use Postgres; anything else is a SQLite DSN, with an
// optional sqlite:// prefix.
func Open(ctx context.Context, url string) (Store, error) {
	if IsPostgres(url) {
		pg, err := OpenPostgres(ctx, url)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
	if err != nil {
		return nil, err
	}
	return lite, nil
}

func IsPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

const taskColumns = "id, text, created_at, archived_at, sort_order"

const taskEntity = "Task"
