// Package cache holds short-lived two-factor state: pending delivered codes,
// TOTP replay markers and the sliding windows behind rate limiting.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Store is a namespaced key/value store with expiry
type Store interface {
	Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error
	Get(ctx context.Context, namespace, key string) (string, error)
	Delete(ctx context.Context, namespace, key string) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, namespace, key, value string, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only if it holds expected and reports whether it did.
	// A mismatch leaves the value in place.
	CompareAndDelete(ctx context.Context, namespace, key, expected string) (bool, error)
}

// AttemptLog records timestamped events per key for sliding-window counting
type AttemptLog interface {
	// Add appends an event at the given time. The key expires after ttl of inactivity.
	Add(ctx context.Context, key string, at time.Time, ttl time.Duration) error
	// Window drops events older than since and returns how many remain and the oldest one.
	Window(ctx context.Context, key string, since time.Time) (int, time.Time, error)
	Clear(ctx context.Context, key string) error
}
