package api

import "todo-api/domain"

const (
	msgInternal    = "Internal server error"
	msgRateLimited = "Rate limit exceeded"
	msgInvalidID   = "Task id must be a positive integer"
)

// GET /api/tasks, GET /api/tasks/archived, PUT /api/tasks/reorder response body
type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

// single task response body
type taskResponse struct {
	Task domain.Task `json:"task"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}
