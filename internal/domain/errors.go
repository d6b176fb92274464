package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide whether to absorb or surface them.
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindSourceUnavailable ErrorKind = "source_unavailable"
	KindInvalidSymbol     ErrorKind = "invalid_symbol"
	KindGenerationFailure ErrorKind = "generation_failure"
	KindInternalFailure   ErrorKind = "internal_failure"
)

// Sentinel errors, one per kind. Use errors.Is(err, ErrInvalidInput) etc.
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrSourceUnavailable = &Error{Kind: KindSourceUnavailable}
	ErrInvalidSymbol     = &Error{Kind: KindInvalidSymbol}
	ErrGenerationFailure = &Error{Kind: KindGenerationFailure}
	ErrInternalFailure   = &Error{Kind: KindInternalFailure}
)

// Error is a classified failure. Op names the operation that failed
// (e.g. "crypto.fetch", "agent.processQuery").
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError builds a classified error wrapping err.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels above work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are treated as internal failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalFailure
}
