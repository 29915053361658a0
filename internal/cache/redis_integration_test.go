//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *RedisCache {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: addr}), "2fa-test")
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(ctx))
	return c
}

func TestRedisCache_Store(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "otp", "alice")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "otp", "alice", "hash", time.Minute))
	v, err := c.Get(ctx, "otp", "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", v)

	// Namespaces do not collide.
	_, err = c.Get(ctx, "totp-used", "alice")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Delete(ctx, "otp", "alice"))
	_, err = c.Get(ctx, "otp", "alice")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache_SetNX(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "totp-used", "alice:123456", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "totp-used", "alice:123456", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_CompareAndDelete(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "otp", "carol", "hash", time.Minute))

	ok, err := c.CompareAndDelete(ctx, "otp", "carol", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.CompareAndDelete(ctx, "otp", "carol", "hash")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.Get(ctx, "otp", "carol")
	assert.ErrorIs(t, err, ErrMiss)

	ok, err = c.CompareAndDelete(ctx, "otp", "carol", "hash")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Expiry(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "otp", "bob", "hash", time.Second))
	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "otp", "bob")
		return err == ErrMiss
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedisCache_AttemptWindow(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()
	key := "user:alice|ip:203.0.113.7"
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Add(ctx, key, base.Add(time.Duration(i)*time.Minute), 15*time.Minute))
	}

	n, oldest, err := c.Window(ctx, key, base)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, oldest.Equal(base))

	n, oldest, err = c.Window(ctx, key, base.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, oldest.Equal(base.Add(2*time.Minute)))

	require.NoError(t, c.Clear(ctx, key))
	n, _, err = c.Window(ctx, key, base)
	require.NoError(t, err)
	assert.Zero(t, n)
}
