//go:build integration

package repositories

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/database"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a throwaway Postgres container, applies the migrations
// and returns a database handle. The container is removed on test cleanup.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("twofactor_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, database.Migrate(ctx, connStr, logger))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return database.NewFromPool(pool, logger)
}

func TestPostgres_TwoFactorRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTwoFactorRepository(db)
	ctx := context.Background()

	_, err := repo.GetByUserID(ctx, "alice")
	assert.ErrorIs(t, err, models.ErrNotFound)

	rec := &models.TwoFactorAuthRecord{
		UserID:          "alice",
		Method:          models.MethodTOTP,
		SecretEncrypted: []byte{0x01, 0x02, 0x03},
	}
	require.NoError(t, repo.Save(ctx, rec))
	assert.NotEmpty(t, rec.ID)

	got, err := repo.GetByUserID(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Nil(t, got.ConfirmedAt)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got.SecretEncrypted)

	// Save again replaces the pending enrollment in place.
	rec.Method = models.MethodSMS
	rec.SecretEncrypted = nil
	rec.PhoneNumber = "+15551234567"
	require.NoError(t, repo.Save(ctx, rec))

	got, err = repo.GetByUserID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.MethodSMS, got.Method)
	assert.Equal(t, "+15551234567", got.PhoneNumber)
	assert.Nil(t, got.SecretEncrypted)

	confirmedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.MarkConfirmed(ctx, "alice", confirmedAt))
	assert.ErrorIs(t, repo.MarkConfirmed(ctx, "alice", confirmedAt), models.ErrNotFound)

	got, err = repo.GetByUserID(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	require.NotNil(t, got.ConfirmedAt)
	assert.WithinDuration(t, confirmedAt, *got.ConfirmedAt, time.Millisecond)

	require.NoError(t, repo.SetRecoveryCodesGeneratedAt(ctx, "alice", confirmedAt))
	assert.ErrorIs(t, repo.SetRecoveryCodesGeneratedAt(ctx, "nobody", confirmedAt), models.ErrNotFound)

	deleted, err := repo.Delete(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPostgres_RecoveryCodeRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecoveryCodeRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	codes := []*models.RecoveryCode{
		{CodeHash: "$2a$hash-one", CreatedAt: now},
		{CodeHash: "$2a$hash-two", CreatedAt: now},
		{CodeHash: "$2a$hash-three", CreatedAt: now},
	}
	require.NoError(t, repo.ReplaceForUser(ctx, "bob", codes))

	count, err := repo.CountUnused(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	used, err := repo.MarkUsed(ctx, codes[0].ID, now, "203.0.113.7", "curl/8.0")
	require.NoError(t, err)
	assert.True(t, used)

	// A second consumer of the same code loses the race.
	used, err = repo.MarkUsed(ctx, codes[0].ID, now, "203.0.113.8", "curl/8.0")
	require.NoError(t, err)
	assert.False(t, used)

	unused, err := repo.ListUnused(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, unused, 2)

	// Replacing invalidates the previous batch, used or not.
	require.NoError(t, repo.ReplaceForUser(ctx, "bob", []*models.RecoveryCode{{CodeHash: "$2a$fresh", CreatedAt: now}}))
	count, err = repo.CountUnused(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	removed, err := repo.DeleteByUserID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestPostgres_DeviceSessionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeviceSessionRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	active := &models.DeviceSession{
		UserID:            "carol",
		Token:             "token-active",
		DeviceFingerprint: "fp-1",
		IPAddress:         "198.51.100.4",
		UserAgent:         "Mozilla/5.0",
		ExpiresAt:         now.Add(30 * 24 * time.Hour),
		CreatedAt:         now,
	}
	expired := &models.DeviceSession{
		UserID:            "carol",
		Token:             "token-expired",
		DeviceFingerprint: "fp-2",
		ExpiresAt:         now.Add(-time.Hour),
		CreatedAt:         now.Add(-31 * 24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, active))
	require.NoError(t, repo.Create(ctx, expired))

	duplicate := *active
	duplicate.ID = ""
	assert.ErrorIs(t, repo.Create(ctx, &duplicate), models.ErrConflict)

	found, err := repo.FindActive(ctx, "carol", "token-active", now)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	_, err = repo.FindActive(ctx, "carol", "token-expired", now)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, repo.Touch(ctx, active.ID, now.Add(time.Minute)))

	list, err := repo.ListActive(ctx, "carol", now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastUsedAt)

	count, err := repo.CountActive(ctx, "carol", now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	swept, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	removed, err := repo.DeleteByToken(ctx, "carol", "token-active")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = repo.DeleteByUserID(ctx, "carol")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPostgres_AuthAttemptRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuthAttemptRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	userID := "dave"
	reason := models.FailureInvalidCode

	attempts := []*models.AuthAttempt{
		{UserID: &userID, Method: "totp", Type: models.AttemptVerification, Successful: false, FailureReason: &reason, AttemptedAt: now.Add(-2 * time.Minute)},
		{UserID: &userID, Method: "totp", Type: models.AttemptVerification, Successful: true, AttemptedAt: now.Add(-time.Minute)},
		{UserID: &userID, Method: "recovery", Type: models.AttemptVerification, Successful: true, AttemptedAt: now},
		{UserID: &userID, Method: "totp", Type: models.AttemptVerification, Successful: true, AttemptedAt: now.Add(-100 * 24 * time.Hour)},
	}
	for _, a := range attempts {
		require.NoError(t, repo.Create(ctx, a))
	}

	stats, err := repo.Stats(ctx, userID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.ByMethod["totp"])
	assert.Equal(t, 1, stats.ByMethod["recovery"])
	require.NotNil(t, stats.LastAt)

	pruned, err := repo.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
}
