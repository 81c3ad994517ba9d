package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies errors returned by the engine.
type ErrorKind string

const (
	// KindInvalidInput marks a missing or malformed required field.
	KindInvalidInput ErrorKind = "invalid_input"
)

// Error is a typed engine error.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

// ErrInvalidInput matches any invalid input error with errors.Is.
var ErrInvalidInput = &Error{Kind: KindInvalidInput, Message: "invalid input"}

// ErrNotFound is returned when a stored record does not exist.
var ErrNotFound = errors.New("record not found")

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// InvalidInput builds an invalid input error for field.
func InvalidInput(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
