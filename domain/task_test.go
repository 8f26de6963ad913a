package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

func TestTaskMarshalIncludesZeroOrderAndNullArchive(t *testing.T) {
	created := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	task := Task{ID: 1, Text: "buy milk", CreatedAt: created, SortOrder: 0}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	got := string(payload)
	for _, want := range []string{`"sortOrder":0`, `"archivedAt":null`, `"createdAt":"2024-05-06T07:08:09.123Z"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}
}

func TestTaskJSONRoundTrip(t *testing.T) {
	archived := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
	task := Task{ID: 3, Text: "a", CreatedAt: archived.Add(-time.Hour), ArchivedAt: &archived, SortOrder: 4}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}
	var back Task
	if err := sonic.Unmarshal(payload, &back); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if back.ID != 3 || back.ArchivedAt == nil || !back.ArchivedAt.Equal(archived) || back.SortOrder != 4 {
		t.Fatalf("unexpected task: %+v", back)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(NotFound("Task", 1)) != KindNotFound {
		t.Fatal("expected not found kind")
	}
	if KindOf(Invalid("text", "bad")) != KindValidation {
		t.Fatal("expected validation kind")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("expected internal kind")
	}
}
