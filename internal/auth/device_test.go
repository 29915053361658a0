package auth

import (
	"testing"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDeviceFingerprint_Stable(t *testing.T) {
	meta := models.RequestMeta{
		IPAddress:      "10.0.0.1",
		UserAgent:      "Mozilla/5.0",
		Accept:         "text/html",
		AcceptLanguage: "en-US",
		AcceptEncoding: "gzip",
	}

	a := DeviceFingerprint(meta)
	assert.Len(t, a, 64)

	// IP is not part of the fingerprint
	meta.IPAddress = "10.0.0.2"
	assert.Equal(t, a, DeviceFingerprint(meta))

	meta.AcceptLanguage = "de-DE"
	assert.NotEqual(t, a, DeviceFingerprint(meta))
}

func TestSecurityScore(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	meta := models.RequestMeta{IPAddress: "10.0.0.1", UserAgent: "Mozilla/5.0", Accept: "text/html"}
	session := &models.DeviceSession{
		IPAddress:         meta.IPAddress,
		UserAgent:         meta.UserAgent,
		DeviceFingerprint: DeviceFingerprint(meta),
		CreatedAt:         now.Add(-time.Hour),
	}

	assert.Equal(t, 100, SecurityScore(session, meta, now))

	moved := meta
	moved.IPAddress = "192.168.1.5"
	assert.Equal(t, 75, SecurityScore(session, moved, now))

	otherBrowser := meta
	otherBrowser.UserAgent = "curl/8.0"
	assert.Equal(t, 65, SecurityScore(session, otherBrowser, now))

	// A month old and never reused
	session.CreatedAt = now.Add(-40 * 24 * time.Hour)
	assert.Equal(t, 60, SecurityScore(session, meta, now))

	lastUsed := now.Add(-time.Hour)
	session.LastUsedAt = &lastUsed
	assert.Equal(t, 80, SecurityScore(session, meta, now))

	everything := models.RequestMeta{IPAddress: "1.1.1.1", UserAgent: "x"}
	session.LastUsedAt = nil
	assert.Equal(t, 0, SecurityScore(session, everything, now))
}
