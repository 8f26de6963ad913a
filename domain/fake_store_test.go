package domain

import (
	"context"
	"errors"
	"sort"
	"time"
)

type fakeStore struct {
	tasks  map[int64]Task
	nextID int64
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[int64]Task{}}
}

func (f *fakeStore) list(keep func(Task) bool) []Task {
	out := []Task{}
	for _, t := range f.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func (f *fakeStore) ActiveTasks(ctx context.Context) ([]Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list(Task.Active), nil
}

func (f *fakeStore) ArchivedTasks(ctx context.Context) ([]Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list(func(t Task) bool { return !t.Active() }), nil
}

func (f *fakeStore) CreateTask(ctx context.Context, text string, now time.Time) (Task, error) {
	if f.err != nil {
		return Task{}, f.err
	}
	var maxOrder int64
	for _, t := range f.tasks {
		if t.SortOrder > maxOrder {
			maxOrder = t.SortOrder
		}
	}
	f.nextID++
	t := Task{ID: f.nextID, Text: text, CreatedAt: now, SortOrder: maxOrder + 1}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeStore) mutate(id int64, fn func(*Task)) (Task, error) {
	if f.err != nil {
		return Task{}, f.err
	}
	t, ok := f.tasks[id]
	if !ok {
		return Task{}, NotFound("Task", id)
	}
	fn(&t)
	f.tasks[id] = t
	return t, nil
}

func (f *fakeStore) UpdateTaskText(ctx context.Context, id int64, text string) (Task, error) {
	return f.mutate(id, func(t *Task) { t.Text = text })
}

func (f *fakeStore) ArchiveTask(ctx context.Context, id int64, at time.Time) (Task, error) {
	return f.mutate(id, func(t *Task) { t.ArchivedAt = &at })
}

func (f *fakeStore) RestoreTask(ctx context.Context, id int64) (Task, error) {
	return f.mutate(id, func(t *Task) { t.ArchivedAt = nil })
}

func (f *fakeStore) ReorderTasks(ctx context.Context, updates []ReorderItem) ([]Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []Task{}
	for _, u := range updates {
		t, err := f.mutate(u.ID, func(t *Task) { t.SortOrder = u.SortOrder })
		if errors.Is(err, ErrNotFound) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type recordingPublisher struct {
	events []TaskEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev TaskEvent) error {
	p.events = append(p.events, ev)
	return p.err
}
