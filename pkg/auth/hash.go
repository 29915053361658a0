package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultHashCost = 10
	MaxCodeBytes    = 72 // bcrypt input limit
)

// CodeHasher hashes short one-time secrets such as recovery codes
type CodeHasher struct {
	cost int
}

// NewCodeHasher creates a hasher with the given bcrypt cost.
// Costs outside bcrypt's range fall back to DefaultHashCost.
func NewCodeHasher(cost int) *CodeHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &CodeHasher{cost: cost}
}

// Cost returns the bcrypt work factor in use
func (h *CodeHasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt hash of code
func (h *CodeHasher) Hash(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("code cannot be empty")
	}
	if len(code) > MaxCodeBytes {
		return "", fmt.Errorf("code exceeds %d bytes", MaxCodeBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether code matches hash. Malformed hashes are returned as errors
// so a corrupted row is not mistaken for a plain mismatch.
func (h *CodeHasher) Compare(hash, code string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare code hash: %w", err)
	}
}
