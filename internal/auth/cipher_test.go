package auth

import (
	"crypto/rand"
	"testing"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *SecretCipher {
	t.Helper()
	key := make([]byte, EncryptionKeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	c, err := NewSecretCipher(key, nil)
	require.NoError(t, err)
	return c
}

func TestNewSecretCipher_InvalidKeyLength(t *testing.T) {
	for _, length := range []int{0, 16, 24, 31, 33, 64} {
		c, err := NewSecretCipher(make([]byte, length), nil)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, models.ErrConfiguration)
		assert.Contains(t, err.Error(), "must be exactly 32 bytes")
	}
}

func TestSecretCipher_SealOpen(t *testing.T) {
	c := newTestCipher(t)
	secret := []byte("super-secret-totp-seed")

	sealed, err := c.Seal("user-1", secret)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), string(secret))

	opened, err := c.Open("user-1", sealed)
	require.NoError(t, err)
	assert.Equal(t, secret, opened)
}

func TestSecretCipher_UniqueNonces(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Seal("user-1", []byte("same"))
	require.NoError(t, err)
	b, err := c.Seal("user-1", []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSecretCipher_BoundToUser(t *testing.T) {
	c := newTestCipher(t)

	sealed, err := c.Seal("user-1", []byte("seed"))
	require.NoError(t, err)

	_, err = c.Open("user-2", sealed)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestSecretCipher_TamperedAndTruncated(t *testing.T) {
	c := newTestCipher(t)

	sealed, err := c.Seal("user-1", []byte("seed"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = c.Open("user-1", sealed)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = c.Open("user-1", []byte{1, 2, 3})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestSecretCipher_WrongKey(t *testing.T) {
	sealed, err := newTestCipher(t).Seal("user-1", []byte("seed"))
	require.NoError(t, err)

	_, err = newTestCipher(t).Open("user-1", sealed)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
