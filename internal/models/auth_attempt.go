package models

import "time"

// AttemptType distinguishes which flow an attempt belongs to.
type AttemptType string

const (
	AttemptVerification AttemptType = "verification"
	AttemptSetup        AttemptType = "setup"
	AttemptChallenge    AttemptType = "challenge"
)

// Failure reasons recorded on unsuccessful attempts
const (
	FailureInvalidCode   = "invalid_code"
	FailureRateLimited   = "rate_limited"
	FailureNotEnabled    = "not_enabled"
	FailureReplay        = "code_replayed"
	FailureDelivery      = "delivery_failed"
	FailureInternalError = "internal_error"
)

// AuthAttempt is an append-only audit row for a two-factor attempt
type AuthAttempt struct {
	ID            string
	UserID        *string // nil for anonymous flows
	IPAddress     string
	UserAgent     string
	Method        string // totp, email, sms, recovery
	Type          AttemptType
	Successful    bool
	FailureReason *string
	CodeHash      string // sha256 of the normalized submitted code
	AttemptedAt   time.Time
}

// AttemptStats aggregates the attempt log for a user over a period.
type AttemptStats struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	ByMethod   map[string]int `json:"by_method"`
	LastAt     *time.Time     `json:"last_at,omitempty"`
}
