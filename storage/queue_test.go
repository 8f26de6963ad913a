package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"todo-api/domain"
)

type fakeQueue struct {
	messages  []string
	createErr error
	sendErr   error
}

func (f *fakeQueue) EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	if f.sendErr != nil {
		return azqueue.EnqueueMessagesResponse{}, f.sendErr
	}
	f.messages = append(f.messages, content)
	return azqueue.EnqueueMessagesResponse{}, nil
}

func (f *fakeQueue) Create(ctx context.Context, options *azqueue.CreateOptions) (azqueue.CreateResponse, error) {
	return azqueue.CreateResponse{}, f.createErr
}

func TestEventQueuePublish(t *testing.T) {
	fq := &fakeQueue{}
	q := &EventQueue{client: fq}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	err := q.Publish(context.Background(), domain.TaskEvent{
		Type:  domain.TaskCreated,
		Tasks: []domain.Task{{ID: 3, Text: "ship it", CreatedAt: at, SortOrder: 4}},
		Time:  at,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fq.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fq.messages))
	}

	var payload struct {
		Type  string `json:"type"`
		Tasks []struct {
			ID         int64   `json:"id"`
			Text       string  `json:"text"`
			ArchivedAt *string `json:"archivedAt"`
			SortOrder  int64   `json:"sortOrder"`
		} `json:"tasks"`
	}
	if err := sonic.UnmarshalString(fq.messages[0], &payload); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if payload.Type != domain.TaskCreated || len(payload.Tasks) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	got := payload.Tasks[0]
	if got.ID != 3 || got.Text != "ship it" || got.ArchivedAt != nil || got.SortOrder != 4 {
		t.Fatalf("unexpected task in payload: %+v", got)
	}
}

func TestEventQueuePublishError(t *testing.T) {
	q := &EventQueue{client: &fakeQueue{sendErr: errors.New("unavailable")}}
	if err := q.Publish(context.Background(), domain.TaskEvent{Type: domain.TaskUpdated}); err == nil {
		t.Fatal("expected send error to surface")
	}
}

func TestEventQueueEnsureIgnoresExisting(t *testing.T) {
	q := &EventQueue{client: &fakeQueue{createErr: &azcore.ResponseError{ErrorCode: "QueueAlreadyExists"}}}
	if err := q.Ensure(context.Background()); err != nil {
		t.Fatalf("existing queue should be fine, got %v", err)
	}

	q = &EventQueue{client: &fakeQueue{createErr: &azcore.ResponseError{ErrorCode: "AuthenticationFailed"}}}
	if err := q.Ensure(context.Background()); err == nil {
		t.Fatal("expected auth failure to surface")
	}
}
