package domain

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "todo-api/domain"

// TaskStore defines the persistence operations the service relies on.
type TaskStore interface {
	ActiveTasks(ctx context.Context) ([]Task, error)
	ArchivedTasks(ctx context.Context) ([]Task, error)
	CreateTask(ctx context.Context, text string, now time.Time) (Task, error)
	UpdateTaskText(ctx context.Context, id int64, text string) (Task, error)
	ArchiveTask(ctx context.Context, id int64, at time.Time) (Task, error)
	RestoreTask(ctx context.Context, id int64) (Task, error)
	// ReorderTasks applies all updates atomically and returns only the rows
	// that exist; unknown ids are skipped.
	ReorderTasks(ctx context.Context, updates []ReorderItem) ([]Task, error)
}

// TaskService implements the task operations on top of a TaskStore.
type TaskService struct {
	st        TaskStore
	now       func() time.Time
	tracer    trace.Tracer
	publisher EventPublisher
	log       *log.Logger
}

// Option customises a TaskService.
type Option func(*TaskService)

func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *TaskService) { s.tracer = t }
}

// WithPublisher sends an event after every successful write.
func WithPublisher(p EventPublisher) Option {
	return func(s *TaskService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *TaskService) { s.log = l }
}

func NewTaskService(st TaskStore, opts ...Option) *TaskService {
	s := &TaskService{
		st:     st,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
		log:    log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActiveTasks returns tasks that are not archived, ordered by sort order.
func (s *TaskService) ActiveTasks(ctx context.Context) (tasks []Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.list_active")
	defer func() { endSpan(span, err) }()

	tasks, err = s.st.ActiveTasks(ctx)
	span.SetAttributes(attribute.Int("tasks.count", len(tasks)))
	return tasks, err
}

// ArchivedTasks returns archived tasks, most recently archived first.
func (s *TaskService) ArchivedTasks(ctx context.Context) (tasks []Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.list_archived")
	defer func() { endSpan(span, err) }()

	tasks, err = s.st.ArchivedTasks(ctx)
	span.SetAttributes(attribute.Int("tasks.count", len(tasks)))
	return tasks, err
}

// CreateTask appends a new active task after all existing ones.
func (s *TaskService) CreateTask(ctx context.Context, text string) (task Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.create")
	defer func() { endSpan(span, err) }()

	task, err = s.st.CreateTask(ctx, text, s.now().UTC())
	if err != nil {
		return Task{}, err
	}
	span.SetAttributes(attribute.Int64("task.id", task.ID), attribute.Int64("task.sort_order", task.SortOrder))
	s.publish(ctx, TaskCreated, task)
	return task, nil
}

// UpdateTaskText replaces the text of a task.
func (s *TaskService) UpdateTaskText(ctx context.Context, id int64, text string) (task Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.update_text", trace.WithAttributes(attribute.Int64("task.id", id)))
	defer func() { endSpan(span, err) }()

	task, err = s.st.UpdateTaskText(ctx, id, text)
	if err != nil {
		return Task{}, err
	}
	s.publish(ctx, TaskUpdated, task)
	return task, nil
}

// ArchiveTask stamps the task as archived. Archiving an archived task
// refreshes the timestamp.
func (s *TaskService) ArchiveTask(ctx context.Context, id int64) (task Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.archive", trace.WithAttributes(attribute.Int64("task.id", id)))
	defer func() { endSpan(span, err) }()

	task, err = s.st.ArchiveTask(ctx, id, s.now().UTC())
	if err != nil {
		return Task{}, err
	}
	s.publish(ctx, TaskArchived, task)
	return task, nil
}

// RestoreTask clears the archive timestamp.
func (s *TaskService) RestoreTask(ctx context.Context, id int64) (task Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.restore", trace.WithAttributes(attribute.Int64("task.id", id)))
	defer func() { endSpan(span, err) }()

	task, err = s.st.RestoreTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	s.publish(ctx, TaskRestored, task)
	return task, nil
}

// ReorderTasks applies a batch of sort order changes in one transaction.
// Entries for unknown ids are skipped, so the result may be shorter than
// the request.
func (s *TaskService) ReorderTasks(ctx context.Context, updates []ReorderItem) (tasks []Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.reorder", trace.WithAttributes(attribute.Int("tasks.requested", len(updates))))
	defer func() { endSpan(span, err) }()

	if len(updates) == 0 {
		return nil, Invalid("tasks", msgReorderNeeded)
	}
	tasks, err = s.st.ReorderTasks(ctx, updates)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("tasks.updated", len(tasks)))
	if skipped := len(updates) - len(tasks); skipped > 0 {
		s.log.WithFields(log.Fields{"requested": len(updates), "skipped": skipped}).Debug("reorder skipped unknown tasks")
	}
	if len(tasks) > 0 {
		s.publish(ctx, TasksReordered, tasks...)
	}
	return tasks, nil
}

func (s *TaskService) publish(ctx context.Context, typ string, tasks ...Task) {
	if s.publisher == nil {
		return
	}
	ev := TaskEvent{Type: typ, Tasks: tasks, Time: s.now().UTC()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.WithFields(log.Fields{"event": typ, "count": len(tasks)}).WithError(err).Warn("publish task event failed")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.kind", KindOf(err).String()))
		if KindOf(err) == KindInternal {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
