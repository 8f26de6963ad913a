package domain

import "errors"

// Kind classifies failures so callers never have to inspect messages.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

var (
	// ErrNotFound matches every not-found Error via errors.Is.
	ErrNotFound = errors.New("not found")
	// ErrValidation matches every validation Error via errors.Is.
	ErrValidation = errors.New("validation failed")
)

// Error is a domain failure tagged with its kind.
type Error struct {
	Kind    Kind
	Entity  string
	ID      int64
	Field   string
	Message string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return e.Entity + " not found"
	case KindValidation:
		if e.Field != "" {
			return e.Field + ": " + e.Message
		}
		return e.Message
	default:
		return e.Message
	}
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

// NotFound reports that no entity with the given id exists.
func NotFound(entity string, id int64) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

// Invalid reports a request that failed validation.
func Invalid(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

// KindOf returns the kind of err, KindInternal for anything untagged.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
