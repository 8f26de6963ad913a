package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	// MaxTextLength bounds task text, counted in characters after trimming.
	MaxTextLength = 500

	msgTextRequired  = "Task text is required"
	msgTextTooLong   = "Task text must be 500 characters or less"
	msgReorderNeeded = "At least one task required for reordering"
)

const textInputSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string", "minLength": 1, "maxLength": 500}
	}
}`

const reorderInputSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["tasks"],
	"properties": {
		"tasks": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "sortOrder"],
				"properties": {
					"id": {"type": "integer", "minimum": 1},
					"sortOrder": {"type": "integer", "minimum": 0}
				}
			}
		}
	}
}`

const taskSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["id", "text", "createdAt", "archivedAt", "sortOrder"],
	"properties": {
		"id": {"type": "integer", "minimum": 1},
		"text": {"type": "string", "minLength": 1, "maxLength": 500},
		"createdAt": {"type": "string", "format": "date-time"},
		"archivedAt": {"type": ["string", "null"], "format": "date-time"},
		"sortOrder": {"type": "integer", "minimum": 0}
	}
}`

// schema pairs a compiled JSON schema with friendly messages keyed by keyword location.
type schema struct {
	compiled *jsonschema.Schema
	messages map[string]string
}

var (
	CreateTaskInputSchema = mustSchema("create-task-input.json", textInputSchema, textMessages())
	UpdateTaskInputSchema = mustSchema("update-task-input.json", textInputSchema, textMessages())
	TaskSchema            = mustSchema("task.json", taskSchema, nil)
)

var ReorderTasksInputSchema = mustSchema("reorder-tasks-input.json", reorderInputSchema, map[string]string{
	"/required":                  msgReorderNeeded,
	"/properties/tasks/minItems": msgReorderNeeded,
})

func textMessages() map[string]string {
	return map[string]string{
		"/required":                  msgTextRequired,
		"/properties/text/minLength": msgTextRequired,
		"/properties/text/maxLength": msgTextTooLong,
	}
}

func mustSchema(url, src string, messages map[string]string) *schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("schema %s: %v", url, err))
	}
	return &schema{compiled: c.MustCompile(url), messages: messages}
}

// validate checks doc and converts the first schema failure into a validation Error.
func (s *schema) validate(doc any) error {
	err := s.compiled.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return Invalid("body", err.Error())
	}
	leaf := firstLeaf(ve)
	field := pointerToField(leaf.InstanceLocation)
	if msg, ok := s.messages[leaf.KeywordLocation]; ok {
		return Invalid(field, msg)
	}
	return Invalid(field, leaf.Message)
}

func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

func pointerToField(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return "body"
	}
	return strings.ReplaceAll(ptr, "/", ".")
}

// documentAPI keeps numbers as json.Number so ids are never rounded through
// float64. Its Unmarshal fails on anything after the first value.
var documentAPI = sonic.Config{
	UseNumber:      true,
	CopyString:     true,
	ValidateString: true,
}.Froze()

func decodeDocument(body []byte) (any, error) {
	var doc any
	if err := documentAPI.Unmarshal(body, &doc); err != nil {
		return nil, Invalid("body", "request body must be valid JSON")
	}
	return doc, nil
}

// trimText strips the characters JavaScript's String.prototype.trim strips:
// unicode.IsSpace plus U+FEFF, minus U+0085.
func trimText(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		switch r {
		case '\u0085':
			return false
		case '\uFEFF':
			return true
		}
		return unicode.IsSpace(r)
	})
}

// DecodeTextInput parses and validates a create or update body. The text is
// trimmed before its length is checked.
func DecodeTextInput(body []byte) (TextInput, error) {
	return decodeTextInput(CreateTaskInputSchema, body)
}

// DecodeUpdateInput is DecodeTextInput for PUT bodies.
func DecodeUpdateInput(body []byte) (TextInput, error) {
	return decodeTextInput(UpdateTaskInputSchema, body)
}

func decodeTextInput(s *schema, body []byte) (TextInput, error) {
	doc, err := decodeDocument(body)
	if err != nil {
		return TextInput{}, err
	}
	if obj, ok := doc.(map[string]any); ok {
		if text, ok := obj["text"].(string); ok {
			obj["text"] = trimText(text)
		}
	}
	if err := s.validate(doc); err != nil {
		return TextInput{}, err
	}
	return TextInput{Text: doc.(map[string]any)["text"].(string)}, nil
}

// DecodeReorderInput parses and validates a reorder body.
func DecodeReorderInput(body []byte) (ReorderInput, error) {
	doc, err := decodeDocument(body)
	if err != nil {
		return ReorderInput{}, err
	}
	if err := ReorderTasksInputSchema.validate(doc); err != nil {
		return ReorderInput{}, err
	}
	raw := doc.(map[string]any)["tasks"].([]any)
	out := ReorderInput{Tasks: make([]ReorderItem, 0, len(raw))}
	for i, item := range raw {
		obj := item.(map[string]any)
		id, err := toInt64(obj["id"])
		if err != nil {
			return ReorderInput{}, Invalid(fmt.Sprintf("tasks.%d.id", i), "must be a 64-bit integer")
		}
		order, err := toInt64(obj["sortOrder"])
		if err != nil {
			return ReorderInput{}, Invalid(fmt.Sprintf("tasks.%d.sortOrder", i), "must be a 64-bit integer")
		}
		out.Tasks = append(out.Tasks, ReorderItem{ID: id, SortOrder: order})
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	}
	return 0, fmt.Errorf("unexpected number type %T", v)
}

// ValidateTask checks a task against the response schema.
func ValidateTask(t Task) error {
	data, err := t.MarshalJSON()
	if err != nil {
		return err
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return err
	}
	if err := TaskSchema.compiled.Validate(doc); err != nil {
		return fmt.Errorf("task %d violates response schema: %w", t.ID, err)
	}
	return nil
}
