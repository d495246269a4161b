// Package apperr defines the error kinds surfaced across the daemon's request/response
// boundary: the Tool Surface, the Store, and the Indexer all wrap failures in an Error
// carrying one of these kinds so callers can branch on Is/As without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of the tool surface's error envelope.
type Kind string

const (
	// InvalidArgument means a tool received malformed or missing fields.
	InvalidArgument Kind = "invalid_argument"
	// NotFound means an unknown session, repository, or restore point was requested.
	NotFound Kind = "not_found"
	// Conflict means a duplicate restore-point label was requested for a repository.
	Conflict Kind = "conflict"
	// Precondition means the operation requires a git repository, a commit, or a clean
	// working tree that is not present.
	Precondition Kind = "precondition"
	// Corrupt means a transcript file is unreadable or its JSON is not parseable at the
	// file level (per-line malformations are tolerated and never reach this kind).
	Corrupt Kind = "corrupt"
	// Transient means the database is busy or locked; the caller may retry.
	Transient Kind = "transient"
	// Fatal means schema migration failed or the database file is unusable.
	Fatal Kind = "fatal"
)

// Error is the typed error carried across component boundaries. Op names the failing
// operation (e.g. "store.upsertConversation"); Message is safe to show a caller; the
// wrapped cause is available via Unwrap but is never included in Message.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no wrapped cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an Error that wraps cause, preserving it for errors.Is/errors.As while
// keeping Message as the only text safe to surface to a tool caller.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else "" and false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
