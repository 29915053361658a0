package models

import "time"

// DeviceSession is a remembered device that may skip the second factor until ExpiresAt.
type DeviceSession struct {
	ID                string
	UserID            string
	Token             string
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
	ExpiresAt         time.Time
	LastUsedAt        *time.Time
	CreatedAt         time.Time
}

// IsActive reports whether the session is still valid at now.
func (s *DeviceSession) IsActive(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// DeviceSummary is the listing view of a remembered device. The token is never exposed.
type DeviceSummary struct {
	ID            string     `json:"id"`
	IPAddress     string     `json:"ip_address"`
	UserAgent     string     `json:"user_agent"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	SecurityScore int        `json:"security_score"`
	Current       bool       `json:"current"`
}
