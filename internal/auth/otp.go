package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
)

const (
	DefaultCodeLength = 6
	MaxCodeLength     = 12
)

// GenerateNumericCode returns a zero-padded string of random decimal digits.
// A nil reader falls back to crypto/rand.
func GenerateNumericCode(r io.Reader, length int) (string, error) {
	if length <= 0 || length > MaxCodeLength {
		return "", models.ConfigError("numeric code length must be between 1 and %d, got %d", MaxCodeLength, length)
	}
	if r == nil {
		r = rand.Reader
	}

	ten := big.NewInt(10)
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate code digit: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// NormalizeNumericCode strips everything that is not an ASCII digit ("123 456" -> "123456").
func NormalizeNumericCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for i := 0; i < len(code); i++ {
		if c := code[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// MatchNumericCode compares a submitted code with the expected one in constant time.
// An empty expected code never matches.
func MatchNumericCode(expected, submitted string) bool {
	submitted = NormalizeNumericCode(submitted)
	if expected == "" || len(expected) != len(submitted) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

// HashCode returns the hex sha256 of a code, used for attempt auditing and
// for pending codes parked in the cache.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
