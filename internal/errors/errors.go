// Package errors provides the structured error taxonomy of the push server and
// maps each category to its handling policy (fatal vs. contained).
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ErrorType represents the category of error for metrics and exit handling.
type ErrorType string

const (
	// TypeBind indicates the listener could not be bound (fatal)
	TypeBind ErrorType = "bind"
	// TypeAccept indicates a single accept failed (logged, accept loop continues)
	TypeAccept ErrorType = "accept"
	// TypeSessionIO indicates a read or write failure on one session (session teardown)
	TypeSessionIO ErrorType = "session_io"
	// TypeArgument indicates a bad command line (fatal, usage printed)
	TypeArgument ErrorType = "argument"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error must abort the process.
func (e *Error) Fatal() bool {
	switch e.Type {
	case TypeBind, TypeArgument:
		return true
	default:
		return false
	}
}

// BindError creates a listener bind failure for the given port.
func BindError(port int, cause error) *Error {
	return newError(TypeBind, "failed to bind listener", cause).WithContext("port", port)
}

// AcceptError creates a recoverable accept failure.
func AcceptError(cause error) *Error {
	return newError(TypeAccept, "failed to accept connection", cause)
}

// ArgumentError creates a command line error.
func ArgumentError(message string) *Error {
	return newError(TypeArgument, message, nil)
}

// SessionIOError creates a read or write failure on a single session.
// op is "read" or "write".
func SessionIOError(op string, cause error) *Error {
	return newError(TypeSessionIO, op+" failed", cause).
		WithContext("op", op).
		WithContext("peer_closed", IsPeerClosed(cause))
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsType reports whether err is a structured error of type t.
func IsType(err error, t ErrorType) bool {
	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr.Type == t
	}
	return false
}

// IsFatal reports whether err must abort the process.
// Unstructured errors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr.Fatal()
	}
	return true
}

// IsPeerClosed reports whether err signals an orderly or abrupt close by the
// remote side rather than a local failure.
func IsPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// IsClosedConn reports whether err comes from using a connection or listener
// that was already closed locally.
func IsClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// ExitCode maps an error returned from startup or serving to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
