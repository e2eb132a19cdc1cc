package domain

import (
	"errors"
	"fmt"
)

var (
	ErrWorkbookNotFound = errors.New("workbook not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidConfig    = errors.New("invalid config")

	// ErrProviderUnavailable means the embedding provider could not be
	// reached or returned an error; distinct from a backend search failure
	// so callers can tell "can't vectorize" from "can't search".
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrBackendQuery means the lexical or vector backend failed.
	ErrBackendQuery = errors.New("backend query failed")

	// ErrRerankerFailed is recovered locally by falling back to the
	// fusion-only order; it is never surfaced as a request failure.
	ErrRerankerFailed = errors.New("reranker failed")

	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
