package services

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/auth"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDeviceSigningKey = []byte("device-signing-key-for-tests-0123456789")

func newDeviceService(t *testing.T) (*DeviceTrustService, *clock.Fake, repositories.DeviceSessionRepository) {
	t.Helper()
	clk := clock.NewFake(fixedNow)
	tokens, err := auth.NewTokenManager(testDeviceSigningKey, "twofactor-test", clk)
	require.NoError(t, err)
	repo := repositories.NewMemoryDeviceSessionRepository()
	return NewDeviceTrustService(repo, tokens, rand.Reader, clk, discardLogger()), clk, repo
}

var laptop = models.RequestMeta{
	IPAddress:      "203.0.113.10",
	UserAgent:      "Mozilla/5.0 (X11; Linux x86_64)",
	Accept:         "text/html",
	AcceptLanguage: "en-US",
	AcceptEncoding: "gzip",
}

func TestDeviceTrustService_RememberAndExpire(t *testing.T) {
	svc, clk, _ := newDeviceService(t)
	ctx := context.Background()

	credential, err := svc.Remember(ctx, "user-1", laptop, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, credential)

	ok, err := svc.IsRemembered(ctx, "user-1", credential)
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(59 * time.Minute)
	ok, err = svc.IsRemembered(ctx, "user-1", credential)
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(2 * time.Minute)
	ok, err = svc.IsRemembered(ctx, "user-1", credential)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeviceTrustService_ZeroDurationNeverRemembered(t *testing.T) {
	svc, _, _ := newDeviceService(t)
	ctx := context.Background()

	for _, d := range []time.Duration{0, -time.Hour} {
		credential, err := svc.Remember(ctx, "user-1", laptop, d)
		require.NoError(t, err)

		ok, err := svc.IsRemembered(ctx, "user-1", credential)
		require.NoError(t, err)
		assert.False(t, ok, "duration %s", d)
	}
}

func TestDeviceTrustService_RefreshesLastUsed(t *testing.T) {
	svc, clk, repo := newDeviceService(t)
	ctx := context.Background()

	credential, err := svc.Remember(ctx, "user-1", laptop, 24*time.Hour)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	ok, err := svc.IsRemembered(ctx, "user-1", credential)
	require.NoError(t, err)
	require.True(t, ok)

	sessions, err := repo.ListActive(ctx, "user-1", clk.Now())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].LastUsedAt)
	assert.Equal(t, clk.Now(), *sessions[0].LastUsedAt)
}

func TestDeviceTrustService_RejectsForeignOrTamperedCredentials(t *testing.T) {
	svc, _, _ := newDeviceService(t)
	ctx := context.Background()

	credential, err := svc.Remember(ctx, "user-1", laptop, time.Hour)
	require.NoError(t, err)

	ok, err := svc.IsRemembered(ctx, "user-2", credential)
	require.NoError(t, err)
	assert.False(t, ok, "credential is bound to its user")

	ok, err = svc.IsRemembered(ctx, "user-1", credential[:len(credential)-2]+"xx")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsRemembered(ctx, "user-1", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeviceTrustService_Forget(t *testing.T) {
	svc, clk, _ := newDeviceService(t)
	ctx := context.Background()

	a, err := svc.Remember(ctx, "user-1", laptop, time.Hour)
	require.NoError(t, err)
	b, err := svc.Remember(ctx, "user-1", laptop, time.Hour)
	require.NoError(t, err)

	n, err := svc.Forget(ctx, "user-1", a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, _ := svc.IsRemembered(ctx, "user-1", a)
	assert.False(t, ok)
	ok, _ = svc.IsRemembered(ctx, "user-1", b)
	assert.True(t, ok)

	// An expired credential can still revoke its row
	clk.Advance(2 * time.Hour)
	n, err = svc.Forget(ctx, "user-1", b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDeviceTrustService_ForgetAllAndCleanup(t *testing.T) {
	svc, clk, _ := newDeviceService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Remember(ctx, "user-1", laptop, time.Hour)
		require.NoError(t, err)
	}
	_, err := svc.Remember(ctx, "user-2", laptop, time.Minute)
	require.NoError(t, err)
	_, err = svc.Remember(ctx, "user-2", laptop, 48*time.Hour)
	require.NoError(t, err)

	n, err := svc.ForgetAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	clk.Advance(time.Hour)
	n, err = svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := svc.Count(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeviceTrustService_List(t *testing.T) {
	svc, clk, _ := newDeviceService(t)
	ctx := context.Background()

	current, err := svc.Remember(ctx, "user-1", laptop, 30*24*time.Hour)
	require.NoError(t, err)

	phone := laptop
	phone.IPAddress = "198.51.100.4"
	phone.UserAgent = "Mobile Safari"
	clk.Advance(time.Minute)
	_, err = svc.Remember(ctx, "user-1", phone, 30*24*time.Hour)
	require.NoError(t, err)

	devices, err := svc.List(ctx, "user-1", laptop, current)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	var currentCount int
	for _, d := range devices {
		if d.Current {
			currentCount++
			assert.Equal(t, 100, d.SecurityScore)
		} else {
			// IP, user agent and fingerprint all differ
			assert.Equal(t, 40, d.SecurityScore)
		}
	}
	assert.Equal(t, 1, currentCount)
}
