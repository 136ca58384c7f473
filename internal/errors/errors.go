// Package errors defines the sentinel error kinds of spec.md §7 and small
// wrapping helpers in the teacher's style.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream indicates the LLM or embeddings provider failed after
	// exhausting retries.
	ErrUpstream = errors.New("upstream provider error")

	// ErrValidation indicates a profile patch produced an invalid profile.
	ErrValidation = errors.New("profile validation problem")

	// ErrNoMatch indicates retrieval returned zero results for a query.
	ErrNoMatch = errors.New("no knowledge base match")

	// ErrMalformedModelOutput indicates json_mode output could not be parsed.
	ErrMalformedModelOutput = errors.New("malformed model output")

	// ErrCacheMismatch indicates a KB cache file's version/deployment
	// stamp does not match the current build and must be discarded.
	ErrCacheMismatch = errors.New("kb cache mismatch")
)

// WrapError wraps an error with a context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with a formatted context message.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// IsUpstream reports whether err is (or wraps) ErrUpstream.
func IsUpstream(err error) bool { return errors.Is(err, ErrUpstream) }

// IsValidation reports whether err is (or wraps) ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNoMatch reports whether err is (or wraps) ErrNoMatch.
func IsNoMatch(err error) bool { return errors.Is(err, ErrNoMatch) }

// IsCacheMismatch reports whether err is (or wraps) ErrCacheMismatch.
func IsCacheMismatch(err error) bool { return errors.Is(err, ErrCacheMismatch) }
