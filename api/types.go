package api

import (
	"context"

	"todo-api/domain"
)

// Service is the task API the handlers depend on. domain.TaskService
// implements it.
type Service interface {
	ActiveTasks(ctx context.Context) ([]domain.Task, error)
	ArchivedTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, text string) (domain.Task, error)
	UpdateTaskText(ctx context.Context, id int64, text string) (domain.Task, error)
	ArchiveTask(ctx context.Context, id int64) (domain.Task, error)
	RestoreTask(ctx context.Context, id int64) (domain.Task, error)
	ReorderTasks(ctx context.Context, updates []domain.ReorderItem) ([]domain.Task, error)
}
