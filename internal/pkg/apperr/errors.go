// Package apperr holds the error taxonomy shared by the listing and engagement workflows.
// Every rejection carries a Kind so callers can tell "forbidden" from "fix your input"
// from "re-fetch and retry".
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable error category returned to callers.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindAuthorization     Kind = "authorization_error"
	KindInvalidTransition Kind = "invalid_transition"
	KindInvalidState      Kind = "invalid_state"
	KindAlreadyResponded  Kind = "already_responded"
	KindConflict          Kind = "conflict"
	KindNotFound          Kind = "not_found"
	KindUnavailable       Kind = "dependency_unavailable"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrAuthorization     = &Error{Kind: KindAuthorization}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrAlreadyResponded  = &Error{Kind: KindAlreadyResponded}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
)

// Error is a structured workflow error.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input for validation errors.
	Field string
	// Reason is the guard's denial code for authorization errors.
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(reason, message string) *Error {
	return &Error{Kind: KindAuthorization, Reason: reason, Message: message}
}

func InvalidTransition(from, to string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("Cannot move from %s to %s", from, to)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func AlreadyResponded() *Error {
	return &Error{Kind: KindAlreadyResponded, Message: "Engagement has already been responded to"}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Unavailable wraps a persistence failure.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: fmt.Sprintf("Failed to %s", op), Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
