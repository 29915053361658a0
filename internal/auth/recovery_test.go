package auth

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRecoveryCodes_FormatAndAlphabet(t *testing.T) {
	codes, err := GenerateRecoveryCodes(rand.Reader, DefaultRecoveryCodeCount, DefaultRecoveryCodeLength)
	require.NoError(t, err)
	require.Len(t, codes, DefaultRecoveryCodeCount)

	seen := map[string]bool{}
	for _, code := range codes {
		assert.Len(t, code, 9, "8 characters plus one dash")
		assert.Equal(t, byte('-'), code[4])

		normalized := NormalizeRecoveryCode(code)
		assert.Len(t, normalized, DefaultRecoveryCodeLength)
		for _, r := range normalized {
			assert.True(t, strings.ContainsRune(RecoveryAlphabet, r), "unexpected character %q", r)
		}
		assert.NotContains(t, normalized, "0")
		assert.NotContains(t, normalized, "O")
		assert.NotContains(t, normalized, "1")
		assert.NotContains(t, normalized, "I")

		assert.False(t, seen[code], "duplicate code in batch")
		seen[code] = true
	}
}

func TestGenerateRecoveryCode_InvalidParameters(t *testing.T) {
	_, err := GenerateRecoveryCode(rand.Reader, 2)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = GenerateRecoveryCodes(rand.Reader, 0, 8)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestFormatRecoveryCode(t *testing.T) {
	assert.Equal(t, "ABCD-EFGH", FormatRecoveryCode("abcdefgh"))
	assert.Equal(t, "ABCD-EFGH-JK", FormatRecoveryCode("ABCDEFGHJK"))
	assert.Equal(t, "ABCD", FormatRecoveryCode("ABCD"))
}

func TestNormalizeRecoveryCode(t *testing.T) {
	assert.Equal(t, "ABCDEFGH", NormalizeRecoveryCode(" abcd-efgh "))
	assert.Equal(t, "ABCDEFGH", NormalizeRecoveryCode("ABCD EFGH"))
}

func TestLooksLikeRecoveryCode(t *testing.T) {
	assert.True(t, LooksLikeRecoveryCode("ABCD2345", 8, true))
	assert.False(t, LooksLikeRecoveryCode("23452345", 8, true))
	assert.True(t, LooksLikeRecoveryCode("23452345", 8, false))
	assert.False(t, LooksLikeRecoveryCode("ABCD234", 8, false))
}
