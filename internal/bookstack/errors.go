package bookstack

import (
	"errors"
	"fmt"
)

// Sentinel errors for BookStack API operations.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, bookstack.ErrAuth) {
//	    // credentials are wrong, retrying is pointless
//	}
var (
	// ErrNotFound indicates a lookup found no matching node. This is a
	// normal outcome of find operations, not a failure.
	ErrNotFound = errors.New("bookstack: not found")

	// ErrAuth indicates the API token was rejected (401/403). Terminal.
	ErrAuth = errors.New("bookstack: authentication failed")

	// ErrValidation indicates the API rejected the request payload
	// (400/422). Terminal; retrying the same payload cannot succeed.
	ErrValidation = errors.New("bookstack: request rejected")

	// ErrRateLimited indicates the API returned 429. Retryable.
	ErrRateLimited = errors.New("bookstack: rate limited")

	// ErrRemoteUnavailable indicates a server-side failure (5xx) or a
	// network-level fault (connection refused, timeout). Retryable.
	ErrRemoteUnavailable = errors.New("bookstack: remote unavailable")
)

// OpError is the terminal error surfaced to callers when an API operation
// fails. It carries enough context to produce an actionable per-item
// failure entry: the operation, the tree level, and the target name.
type OpError struct {
	// Op is the failed operation (e.g., "create", "find", "update").
	Op string

	// Level is the tree level ("shelf", "book", "chapter", "page").
	Level string

	// Name is the node name the operation targeted.
	Name string

	// Attempts is how many attempts were made before giving up.
	Attempts int

	// Err is the underlying classified error.
	Err error
}

func (e *OpError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("bookstack: %s %s %q failed after %d attempts: %v", e.Op, e.Level, e.Name, e.Attempts, e.Err)
	}
	return fmt.Sprintf("bookstack: %s %s %q failed: %v", e.Op, e.Level, e.Name, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// statusError maps a non-success HTTP status to its classified error.
// The message is the error detail extracted from the response body, if any.
func statusError(status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}

	switch {
	case status == 401 || status == 403:
		return fmt.Errorf("%w: %s", ErrAuth, message)
	case status == 404:
		return ErrNotFound
	case status == 400 || status == 422:
		return fmt.Errorf("%w: %s", ErrValidation, message)
	case status == 429:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	case status >= 500:
		return fmt.Errorf("%w: %s", ErrRemoteUnavailable, message)
	default:
		// Anything else non-success is treated as a terminal write error.
		return fmt.Errorf("%w: unexpected status %d: %s", ErrValidation, status, message)
	}
}

// retryable reports whether an error is worth retrying. Authentication and
// validation failures are terminal; rate limits, server errors, and
// network faults are transient.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrAuth), errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrRemoteUnavailable):
		return true
	default:
		return false
	}
}
