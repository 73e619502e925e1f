package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can map it to a response without
// string-matching messages.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound means a referenced event/activity/vote/entry does not exist.
	KindNotFound
	// KindValidation means a required field is empty, out of range, or malformed.
	KindValidation
	// KindStateConflict means the operation is invalid for the current status.
	KindStateConflict
	// KindDuplicate means a second vote/entry/answer for the same uniqueness key.
	KindDuplicate
	// KindCrossEvent means the activity does not belong to the referenced event.
	KindCrossEvent
	// KindInsufficientEntries means a raffle draw asked for more winners than entries.
	KindInsufficientEntries
	// KindTransient marks retryable store failures (throttling, temporary outage).
	KindTransient
)

// Error is the typed failure returned by every engine and store.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two domain errors by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// Invalidf builds a KindValidation error.
func Invalidf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// Conflictf builds a KindStateConflict error.
func Conflictf(format string, args ...any) *Error {
	return newError(KindStateConflict, format, args...)
}

// Duplicatef builds a KindDuplicate error.
func Duplicatef(format string, args ...any) *Error {
	return newError(KindDuplicate, format, args...)
}

// CrossEventf builds a KindCrossEvent error.
func CrossEventf(format string, args ...any) *Error {
	return newError(KindCrossEvent, format, args...)
}

// InsufficientEntriesf builds a KindInsufficientEntries error.
func InsufficientEntriesf(format string, args ...any) *Error {
	return newError(KindInsufficientEntries, format, args...)
}

// Transientf wraps a retryable store failure.
func Transientf(err error, format string, args ...any) *Error {
	e := newError(KindTransient, format, args...)
	e.Err = err
	return e
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool { return IsKind(err, KindTransient) }
