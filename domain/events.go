package domain

import (
	"context"
	"time"
)

const (
	TaskCreated    = "task-created"
	TaskUpdated    = "task-updated"
	TaskArchived   = "task-archived"
	TaskRestored   = "task-restored"
	TasksReordered = "tasks-reordered"
)

// TaskEvent describes a committed change to one or more tasks.
type TaskEvent struct {
	Type  string    `json:"type"`
	Tasks []Task    `json:"tasks"`
	Time  time.Time `json:"time"`
}

// EventPublisher forwards task events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev TaskEvent) error
}
