// Package apperr defines the error taxonomy shared by the calendar packages.
//
// Every failure carries a Kind. Callers test for a kind with errors.Is against
// the exported sentinels, whatever message or cause the error carries.
package apperr

import (
	"errors"
	"fmt"

	"github.com/tartampluch/go-attendance/internal/config"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindOutOfRange      Kind = "OUT_OF_RANGE"
	KindLookupFailure   Kind = "LOOKUP_FAILURE"
	KindDuplicateRule   Kind = "DUPLICATE_RULE"
	KindAmbiguousRule   Kind = "AMBIGUOUS_RULE"
	KindInvalidRule     Kind = "INVALID_RULE"
)

// Error is a classified failure with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument = New(KindInvalidArgument, config.ErrInvalidArgument)
	ErrOutOfRange      = New(KindOutOfRange, config.ErrOutOfRange)
	ErrLookupFailure   = New(KindLookupFailure, config.ErrLookupFailure)
	ErrDuplicateRule   = New(KindDuplicateRule, config.ErrDuplicateRule)
	ErrAmbiguousRule   = New(KindAmbiguousRule, config.ErrAmbiguousRule)
	ErrInvalidRule     = New(KindInvalidRule, config.ErrInvalidRule)
)

// New creates an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an existing error.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
