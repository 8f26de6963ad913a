package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"todo-api/domain"
)

func TestRequestLoggerEntry(t *testing.T) {
	logger, hook := test.NewNullLogger()
	e := NewServer(failingService{err: domain.NotFound("Task", 1)}, ServerOptions{
		Logger:      logger,
		RateLimiter: NewMemoryWindowStore(100, time.Minute),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var entry *log.Entry
	for _, en := range hook.AllEntries() {
		if en.Message == "http.request" {
			entry = en
		}
	}
	if entry == nil {
		t.Fatal("expected http.request entry")
	}
	if entry.Level != log.WarnLevel {
		t.Fatalf("expected warn level for 4xx, got %v", entry.Level)
	}
	if entry.Data["route"] != "/api/tasks" || entry.Data["method"] != http.MethodGet {
		t.Fatalf("unexpected route fields: %#v", entry.Data)
	}
	if entry.Data["status"] != http.StatusNotFound {
		t.Fatalf("expected logged status 404, got %v", entry.Data["status"])
	}
	if entry.Data["request_id"] != rec.Header().Get("X-Request-Id") || entry.Data["request_id"] == "" {
		t.Fatalf("request id mismatch: %v", entry.Data["request_id"])
	}
	if _, ok := entry.Data["total_ms"].(float64); !ok {
		t.Fatalf("total_ms missing: %#v", entry.Data)
	}
	if entry.Data["error"] != "Task not found" {
		t.Fatalf("unexpected error field %v", entry.Data["error"])
	}
}
