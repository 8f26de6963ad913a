package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"todo-api/domain"
)

// Register wires up all API routes on the provided Echo instance. The health
// check answers both at the root and under /api.
func Register(e *echo.Echo, svc Service) {
	e.GET("/health", health())

	g := e.Group("/api")
	g.GET("/tasks", getActiveTasks(svc))
	g.GET("/tasks/archived", getArchivedTasks(svc))
	g.POST("/tasks", createTask(svc))
	g.PUT("/tasks/reorder", reorderTasks(svc))
	g.PUT("/tasks/:id", updateTask(svc))
	g.POST("/tasks/:id/archive", archiveTask(svc))
	g.POST("/tasks/:id/restore", restoreTask(svc))
	g.GET("/health", health())
}

func health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
}

func getActiveTasks(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := svc.ActiveTasks(c.Request().Context())
		if err != nil {
			return err
		}
		return respondTasks(c, tasks)
	}
}

func getArchivedTasks(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := svc.ArchivedTasks(c.Request().Context())
		if err != nil {
			return err
		}
		return respondTasks(c, tasks)
	}
}

func createTask(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := readBody(c)
		if err != nil {
			return err
		}
		in, err := domain.DecodeTextInput(body)
		if err != nil {
			return err
		}
		task, err := svc.CreateTask(c.Request().Context(), in.Text)
		if err != nil {
			return err
		}
		return respondTask(c, http.StatusCreated, task)
	}
}

func updateTask(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return err
		}
		body, err := readBody(c)
		if err != nil {
			return err
		}
		in, err := domain.DecodeUpdateInput(body)
		if err != nil {
			return err
		}
		task, err := svc.UpdateTaskText(c.Request().Context(), id, in.Text)
		if err != nil {
			return err
		}
		return respondTask(c, http.StatusOK, task)
	}
}

func archiveTask(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return err
		}
		task, err := svc.ArchiveTask(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return respondTask(c, http.StatusOK, task)
	}
}

func restoreTask(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return err
		}
		task, err := svc.RestoreTask(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return respondTask(c, http.StatusOK, task)
	}
}

func reorderTasks(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := readBody(c)
		if err != nil {
			return err
		}
		in, err := domain.DecodeReorderInput(body)
		if err != nil {
			return err
		}
		tasks, err := svc.ReorderTasks(c.Request().Context(), in.Tasks)
		if err != nil {
			return err
		}
		return respondTasks(c, tasks)
	}
}

func taskID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("id", msgInvalidID)
	}
	return id, nil
}

// readBody relies on the BodyLimit and InflateRequest middleware to cap the
// size; their 413 errors pass through unchanged.
func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Unable to read request body")
	}
	return body, nil
}

func respondTask(c echo.Context, status int, task domain.Task) error {
	if err := domain.ValidateTask(task); err != nil {
		return err
	}
	return c.JSON(status, taskResponse{Task: task})
}

func respondTasks(c echo.Context, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	for _, t := range tasks {
		if err := domain.ValidateTask(t); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
}
