package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
)

// RecoveryAlphabet excludes visually ambiguous characters (0/O, 1/I/L)
const RecoveryAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	DefaultRecoveryCodeLength = 8
	DefaultRecoveryCodeCount  = 8
	recoveryGroupSize         = 4
)

// GenerateRecoveryCode returns one display-formatted code of length characters.
func GenerateRecoveryCode(r io.Reader, length int) (string, error) {
	if length < recoveryGroupSize || length > 32 {
		return "", models.ConfigError("recovery code length must be between %d and 32, got %d", recoveryGroupSize, length)
	}
	if r == nil {
		r = rand.Reader
	}

	max := big.NewInt(int64(len(RecoveryAlphabet)))
	raw := make([]byte, length)
	for i := range raw {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate recovery code: %w", err)
		}
		raw[i] = RecoveryAlphabet[n.Int64()]
	}
	return FormatRecoveryCode(string(raw)), nil
}

// GenerateRecoveryCodes returns count distinct codes
func GenerateRecoveryCodes(r io.Reader, count, length int) ([]string, error) {
	if count <= 0 {
		return nil, models.ConfigError("recovery code count must be positive, got %d", count)
	}

	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)
	for len(codes) < count {
		code, err := GenerateRecoveryCode(r, length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// FormatRecoveryCode groups a normalized code into dash separated chunks of 4
func FormatRecoveryCode(code string) string {
	code = NormalizeRecoveryCode(code)
	if len(code) <= recoveryGroupSize {
		return code
	}

	var b strings.Builder
	for i := 0; i < len(code); i += recoveryGroupSize {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + recoveryGroupSize
		if end > len(code) {
			end = len(code)
		}
		b.WriteString(code[i:end])
	}
	return b.String()
}

// NormalizeRecoveryCode uppercases and drops every separator ("abcd-efgh " -> "ABCDEFGH").
func NormalizeRecoveryCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range strings.ToUpper(code) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LooksLikeRecoveryCode reports whether a normalized submission has the recovery shape.
// When requireLetter is set, all-digit input is rejected.
func LooksLikeRecoveryCode(normalized string, length int, requireLetter bool) bool {
	if len(normalized) != length {
		return false
	}
	if !requireLetter {
		return true
	}
	return strings.IndexFunc(normalized, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
}
