package optimizer

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel for requests rejected before computation.
var ErrInvalidInput = errors.New("invalid optimization input")

// InputError describes which precondition failed.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
