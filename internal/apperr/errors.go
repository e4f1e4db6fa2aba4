// Package apperr defines the error kinds surfaced by the reservation core.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = fmt.Errorf("%w: insufficient privileges", ErrUnauthorized)
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid status")

	// ErrTransport marks side-effect delivery failures. It is logged, never returned
	// as the result of a primary operation.
	ErrTransport = errors.New("transport failure")
)

// Validation wraps ErrValidation with a message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict with a message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the missing entity's description.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Transport wraps ErrTransport around a delivery error.
func Transport(channel string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransport, channel, err)
}
