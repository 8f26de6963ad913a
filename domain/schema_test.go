package domain

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDecodeTextInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{name: "plain", body: `{"text":"buy milk"}`, want: "buy milk"},
		{name: "trimmed", body: `{"text":"  buy milk \n"}`, want: "buy milk"},
		{name: "trailing whitespace after document", body: "{\"text\":\"a\"} \n", want: "a"},
		{name: "unknown fields ignored", body: `{"text":"a","extra":true}`, want: "a"},
		{name: "max length", body: `{"text":"` + strings.Repeat("a", MaxTextLength) + `"}`, want: strings.Repeat("a", MaxTextLength)},
		{name: "empty", body: `{"text":""}`, wantErr: "text: Task text is required"},
		{name: "whitespace only", body: `{"text":"   "}`, wantErr: "text: Task text is required"},
		{name: "missing", body: `{}`, wantErr: "Task text is required"},
		{name: "too long", body: `{"text":"` + strings.Repeat("a", MaxTextLength+1) + `"}`, wantErr: "text: Task text must be 500 characters or less"},
		{name: "wrong type", body: `{"text":5}`, wantErr: "text:"},
		{name: "not an object", body: `["a"]`, wantErr: "body:"},
		{name: "malformed", body: `{"text":`, wantErr: "request body must be valid JSON"},
		{name: "trailing junk", body: `{"text":"a"} {"junk":`, wantErr: "request body must be valid JSON"},
		{name: "second document", body: `{"text":"a"}{"text":"b"}`, wantErr: "request body must be valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeTextInput([]byte(tt.body))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got text %q", tt.wantErr, got.Text)
				}
				if !IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error %q does not contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Text != tt.want {
				t.Fatalf("got %q, want %q", got.Text, tt.want)
			}
		})
	}
}

func TestDecodeTextInputCountsCharacters(t *testing.T) {
	body := `{"text":"` + strings.Repeat("é", MaxTextLength) + `"}`
	got, err := DecodeUpdateInput([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n := len([]rune(got.Text)); n != MaxTextLength {
		t.Fatalf("expected %d characters, got %d", MaxTextLength, n)
	}
}

func TestTrimTextMatchesJavaScript(t *testing.T) {
	cases := map[string]string{
		"\uFEFFhello\uFEFF":      "hello",
		"\u00A0hello\u3000":      "hello",
		"\u2028hello\u2029":      "hello",
		"\t\v\f\r\n hello ":      "hello",
		"\u0085hello\u0085":      "\u0085hello\u0085",
		"in\uFEFFside stays":     "in\uFEFFside stays",
		"\u200Bzero width\u200B": "\u200Bzero width\u200B",
	}
	for in, want := range cases {
		if got := trimText(in); got != want {
			t.Fatalf("trimText(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := DecodeTextInput([]byte("{\"text\":\"\uFEFF\"}")); !IsValidation(err) {
		t.Fatalf("byte order mark alone should be empty text, got %v", err)
	}
}

func TestDecodeReorderInput(t *testing.T) {
	got, err := DecodeReorderInput([]byte(`{"tasks":[{"id":1,"sortOrder":5},{"id":999,"sortOrder":0}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []ReorderItem{{ID: 1, SortOrder: 5}, {ID: 999, SortOrder: 0}}
	if !reflect.DeepEqual(got.Tasks, want) {
		t.Fatalf("got %+v, want %+v", got.Tasks, want)
	}

	bad := map[string]string{
		`{"tasks":[]}`:                         "At least one task required for reordering",
		`{}`:                                   "At least one task required for reordering",
		`{"tasks":[{"id":0,"sortOrder":1}]}`:   "tasks.0.id",
		`{"tasks":[{"id":1,"sortOrder":-1}]}`:  "tasks.0.sortOrder",
		`{"tasks":[{"id":1.5,"sortOrder":1}]}`: "tasks.0.id",
		`{"tasks":[{"id":1}]}`:                 "tasks.0",
		`{"tasks":[{"id":"1","sortOrder":1}]}`: "tasks.0.id",
		`{"tasks":[{"id":1,"sortOrder":1}]}]`:  "request body must be valid JSON",
	}
	for body, want := range bad {
		_, err := DecodeReorderInput([]byte(body))
		if err == nil {
			t.Fatalf("%s: expected error", body)
		}
		if !IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", body, err)
		}
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: error %q does not contain %q", body, err, want)
		}
	}
}

func TestValidateTask(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ok := Task{ID: 1, Text: "a", CreatedAt: now, SortOrder: 0}
	if err := ValidateTask(ok); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	archived := ok
	archived.ArchivedAt = &now
	if err := ValidateTask(archived); err != nil {
		t.Fatalf("archived task rejected: %v", err)
	}

	mutations := map[string]func(*Task){
		"zero id":       func(t *Task) { t.ID = 0 },
		"empty text":    func(t *Task) { t.Text = "" },
		"negative sort": func(t *Task) { t.SortOrder = -1 },
	}
	for name, mutate := range mutations {
		bad := ok
		mutate(&bad)
		if ValidateTask(bad) == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
