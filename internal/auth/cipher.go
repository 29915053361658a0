package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
)

const EncryptionKeySize = 32

// SecretCipher seals TOTP secrets with AES-256-GCM before they reach storage.
// Sealed output is nonce || ciphertext.
type SecretCipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewSecretCipher creates a cipher from a 32-byte key. A nil reader falls back to crypto/rand.
func NewSecretCipher(key []byte, r io.Reader) (*SecretCipher, error) {
	if len(key) != EncryptionKeySize {
		return nil, models.ConfigError("encryption key must be exactly %d bytes, got %d", EncryptionKeySize, len(key))
	}
	if r == nil {
		r = rand.Reader
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SecretCipher{aead: gcm, rand: r}, nil
}

// Seal encrypts plaintext. The user id is bound as additional data so a
// sealed secret cannot be moved to another user's row.
func (c *SecretCipher) Seal(userID string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, []byte(userID)), nil
}

// Open reverses Seal. Tampered or foreign ciphertext is a configuration error.
func (c *SecretCipher) Open(userID string, sealed []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(sealed) < ns+c.aead.Overhead() {
		return nil, models.ConfigError("sealed secret is truncated")
	}
	plaintext, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(userID))
	if err != nil {
		return nil, models.ConfigError("failed to decrypt secret")
	}
	return plaintext, nil
}
