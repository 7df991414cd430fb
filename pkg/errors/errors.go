// Package errors provides coded errors for the cluster agent.
//
// Codes separate the three failure classes the agent distinguishes:
// caller mistakes in the event payload, missing agent configuration,
// and I/O or transport failures talking to the cluster or the backend.
package errors

import (
	"errors"
	"fmt"
)

// Error codes as constants
const (
	// ErrCodeInvalidInput marks a malformed or incomplete event payload.
	ErrCodeInvalidInput = "INVALID_INPUT"

	// ErrCodeConfig marks a missing or invalid agent configuration value.
	ErrCodeConfig = "CONFIG_ERROR"

	// ErrCodeTransport marks a file, Kubernetes API, or HTTP transport failure.
	ErrCodeTransport = "TRANSPORT_ERROR"

	// ErrCodeBackendRejected marks a non-created response from the onboarding backend.
	ErrCodeBackendRejected = "BACKEND_REJECTED"

	// ErrCodeInternal marks an unexpected internal failure.
	ErrCodeInternal = "INTERNAL_ERROR"
)

// Error is an error with a machine-readable code and an optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a coded error without a cause.
func New(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error wrapping cause. A nil cause yields a plain coded error.
func Wrap(cause error, code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf returns the code of err, or ErrCodeInternal when err carries no code.
func CodeOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
