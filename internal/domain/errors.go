package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	// Access-facing paths must not surface it directly; they translate to
	// ErrAccessDenied so unknown shares and wrong credentials look identical.
	ErrNotFound = errors.New("resource not found")
	// ErrAccessDenied covers wrong passcode, unknown recipient, unknown or
	// revoked share, and invalid/expired tokens. One sentinel for all of them
	// keeps response shapes indistinguishable to the caller.
	ErrAccessDenied = errors.New("access denied")
	// ErrRateLimited signals an active lockout window. Wrap it in a
	// RateLimitError when the retry interval is known.
	ErrRateLimited  = errors.New("rate limited")
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration marks server-side misconfiguration (passcode mode with
	// no stored passcode, missing signing key). Callers only ever see an
	// opaque unavailable response.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnavailable is returned when a backing store cannot be reached.
	ErrUnavailable    = errors.New("service unavailable")
	ErrSessionExpired = errors.New("session expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrConflict       = errors.New("conflict")
)

// RateLimitError carries the retry interval for an active lockout.
// Only the interval is exposed; attempt counts and thresholds never leave the
// service.
type RateLimitError struct {
	RetryAfterSeconds int64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %ds", e.RetryAfterSeconds)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// NewRateLimitError builds a RateLimitError from a non-negative interval.
func NewRateLimitError(retryAfterSeconds int64) *RateLimitError {
	if retryAfterSeconds < 0 {
		retryAfterSeconds = 0
	}
	return &RateLimitError{RetryAfterSeconds: retryAfterSeconds}
}
