package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
)

// DeviceFingerprint hashes the user agent and accept headers into a stable identifier.
// It is a secondary signal only; sessions are matched by token.
func DeviceFingerprint(meta models.RequestMeta) string {
	combined := fmt.Sprintf("%s|%s|%s|%s",
		meta.UserAgent,
		meta.Accept,
		meta.AcceptLanguage,
		meta.AcceptEncoding,
	)
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// Security score deductions
const (
	scoreIPChanged          = 25
	scoreUserAgentChanged   = 20
	scoreFingerprintChanged = 15
	scoreAgedWeek           = 10
	scoreAgedMonth          = 20
	scoreIdleWeek           = 10
	scoreIdleMonth          = 20
)

// SecurityScore rates how much a remembered session still resembles the current
// request, from 100 (identical and fresh) down to 0. Diagnostic only.
func SecurityScore(session *models.DeviceSession, current models.RequestMeta, now time.Time) int {
	score := 100

	if current.IPAddress != "" && current.IPAddress != session.IPAddress {
		score -= scoreIPChanged
	}
	if current.UserAgent != "" && current.UserAgent != session.UserAgent {
		score -= scoreUserAgentChanged
	}
	if current.UserAgent != "" && DeviceFingerprint(current) != session.DeviceFingerprint {
		score -= scoreFingerprintChanged
	}

	switch age := now.Sub(session.CreatedAt); {
	case age > 30*24*time.Hour:
		score -= scoreAgedMonth
	case age > 7*24*time.Hour:
		score -= scoreAgedWeek
	}

	lastSeen := session.CreatedAt
	if session.LastUsedAt != nil {
		lastSeen = *session.LastUsedAt
	}
	switch idle := now.Sub(lastSeen); {
	case idle > 30*24*time.Hour:
		score -= scoreIdleMonth
	case idle > 7*24*time.Hour:
		score -= scoreIdleWeek
	}

	if score < 0 {
		return 0
	}
	return score
}
