package domain

import (
	"time"

	"github.com/bytedance/sonic"
)

// TimeLayout is the wire format for task timestamps.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Task represents a single item on the to-do list.
type Task struct {
	ID         int64
	Text       string
	CreatedAt  time.Time
	ArchivedAt *time.Time
	SortOrder  int64
}

// Active reports whether the task has not been archived.
func (t Task) Active() bool { return t.ArchivedAt == nil }

type taskJSON struct {
	ID         int64   `json:"id"`
	Text       string  `json:"text"`
	CreatedAt  string  `json:"createdAt"`
	ArchivedAt *string `json:"archivedAt"`
	SortOrder  int64   `json:"sortOrder"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	out := taskJSON{
		ID:        t.ID,
		Text:      t.Text,
		CreatedAt: formatTime(t.CreatedAt),
		SortOrder: t.SortOrder,
	}
	if t.ArchivedAt != nil {
		s := formatTime(*t.ArchivedAt)
		out.ArchivedAt = &s
	}
	return sonic.ConfigStd.Marshal(out)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var in taskJSON
	if err := sonic.ConfigStd.Unmarshal(data, &in); err != nil {
		return err
	}
	created, err := time.Parse(time.RFC3339Nano, in.CreatedAt)
	if err != nil {
		return err
	}
	*t = Task{ID: in.ID, Text: in.Text, CreatedAt: created.UTC(), SortOrder: in.SortOrder}
	if in.ArchivedAt != nil {
		archived, err := time.Parse(time.RFC3339Nano, *in.ArchivedAt)
		if err != nil {
			return err
		}
		archived = archived.UTC()
		t.ArchivedAt = &archived
	}
	return nil
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(TimeLayout)
}

// ReorderItem assigns a new sort order to a task.
type ReorderItem struct {
	ID        int64 `json:"id"`
	SortOrder int64 `json:"sortOrder"`
}

// TextInput is the body of create and update requests.
type TextInput struct {
	Text string `json:"text"`
}

// ReorderInput is the body of a reorder request.
type ReorderInput struct {
	Tasks []ReorderItem `json:"tasks"`
}
