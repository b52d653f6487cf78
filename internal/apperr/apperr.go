package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable identifier for a failure class. The HTTP boundary maps
// kinds to status codes; everything below the boundary only deals in kinds.
type Kind string

const (
	// KindUpstreamUnavailable means the search backend was unreachable or
	// timed out. Fatal: no seed URLs, no pipeline.
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"

	// KindIndexUnavailable means the vector store (or the embedding backend
	// on the retrieval path) failed on the critical path.
	KindIndexUnavailable Kind = "INDEX_UNAVAILABLE"

	// KindSummarizerUnavailable means the LLM backend failed. Fatal for the
	// summary endpoint only.
	KindSummarizerUnavailable Kind = "SUMMARIZER_UNAVAILABLE"

	// KindValidation means the request payload failed boundary validation.
	KindValidation Kind = "VALIDATION_ERROR"

	KindInternal Kind = "INTERNAL_ERROR"
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind. A nil err still produces a kinded error so
// callers can signal a failure class without an underlying cause.
func New(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Newf is New with a formatted message as the cause.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf walks the error chain for an *Error and returns its kind.
// Unwrapped errors report KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
