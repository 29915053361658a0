package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrInvalidInput = errors.New("invalid input")

	// Two-factor outcome errors
	ErrInvalidCode       = errors.New("invalid two-factor code")
	ErrRateLimitExceeded = errors.New("too many verification attempts")
	ErrMethodDisabled    = errors.New("two-factor method is disabled")
	ErrAlreadyEnabled    = errors.New("two-factor authentication is already enabled")
	ErrNotEnabled        = errors.New("two-factor authentication is not enabled")
	ErrNoPendingSetup    = errors.New("no pending two-factor setup")
	ErrDeliveryFailed    = errors.New("failed to deliver two-factor code")
	ErrConfiguration     = errors.New("two-factor configuration error")
	// ErrUserNotFound is for host code resolving user ids. Responses render it
	// the same as ErrInvalidCode.
	ErrUserNotFound = errors.New("user not found")
)

// RateLimitError is returned when the attempt budget for a key is spent.
// It matches ErrRateLimitExceeded via errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %d seconds", ErrRateLimitExceeded.Error(), e.RetryAfterSeconds())
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// RetryAfterSeconds rounds the retry hint up to whole seconds, minimum 1.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// ConfigError wraps ErrConfiguration with the offending detail.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
