package contact

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationKind classifies a ValidationError.
type ValidationKind string

const (
	KindMissingRequiredField ValidationKind = "missing_required_field"
	KindInvalidField         ValidationKind = "invalid_field"
)

// ErrSubmissionNotFound is returned when no submission has the given id.
var ErrSubmissionNotFound = errors.New("contact: submission not found")

// ValidationError reports input the caller has to fix.
type ValidationError struct {
	Kind     ValidationKind
	Fields   []string
	Messages []string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissingRequiredField:
		return "contact: missing required field(s): " + strings.Join(e.Fields, ", ")
	default:
		return "contact: invalid field(s): " + strings.Join(e.Messages, "; ")
	}
}

func missingFields(fields []string) *ValidationError {
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = f + " is required"
	}
	return &ValidationError{Kind: KindMissingRequiredField, Fields: fields, Messages: msgs}
}

// PersistenceError wraps a failed write to the submission store. Schema is set
// when the store rejected the record itself rather than failing to reach it.
type PersistenceError struct {
	Op     string
	Schema bool
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("contact: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// FlagUpdateError is logged when delivery flags could not be written back.
type FlagUpdateError struct {
	ID  string
	Err error
}

func (e *FlagUpdateError) Error() string {
	return fmt.Sprintf("contact: update delivery flags for %s: %v", e.ID, e.Err)
}

func (e *FlagUpdateError) Unwrap() error { return e.Err }
