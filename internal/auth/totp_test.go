package auth

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/pquerna/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rfcSecretSHA1 = []byte("12345678901234567890")

// ============================================================================
// ComputeTOTP Tests
// ============================================================================

func TestComputeTOTP_RFC6238Vectors(t *testing.T) {
	tests := []struct {
		name      string
		secret    []byte
		unix      int64
		algorithm otp.Algorithm
		want      string
	}{
		{"sha1 t=59", rfcSecretSHA1, 59, otp.AlgorithmSHA1, "94287082"},
		{"sha1 t=1111111109", rfcSecretSHA1, 1111111109, otp.AlgorithmSHA1, "07081804"},
		{"sha1 t=1234567890", rfcSecretSHA1, 1234567890, otp.AlgorithmSHA1, "89005924"},
		{"sha1 t=2000000000", rfcSecretSHA1, 2000000000, otp.AlgorithmSHA1, "69279037"},
		{"sha256 t=59", []byte("12345678901234567890123456789012"), 59, otp.AlgorithmSHA256, "46119246"},
		{"sha512 t=59", []byte("1234567890123456789012345678901234567890123456789012345678901234"), 59, otp.AlgorithmSHA512, "90693936"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := ComputeTOTP(tt.secret, time.Unix(tt.unix, 0), 30, 8, tt.algorithm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestComputeTOTP_SixDigitsZeroPadded(t *testing.T) {
	// RFC 4226 counter 0 and 1
	code, err := ComputeTOTP(rfcSecretSHA1, time.Unix(0, 0), 30, 6, otp.AlgorithmSHA1)
	require.NoError(t, err)
	assert.Equal(t, "755224", code)

	code, err = ComputeTOTP(rfcSecretSHA1, time.Unix(30, 0), 30, 6, otp.AlgorithmSHA1)
	require.NoError(t, err)
	assert.Equal(t, "287082", code)
}

func TestComputeTOTP_InvalidInput(t *testing.T) {
	_, err := ComputeTOTP(nil, time.Now(), 30, 6, otp.AlgorithmSHA1)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = ComputeTOTP(rfcSecretSHA1, time.Now(), 0, 6, otp.AlgorithmSHA1)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

// ============================================================================
// VerifyTOTP Tests
// ============================================================================

func TestVerifyTOTP_RoundTrip(t *testing.T) {
	secret, err := GenerateTOTPSecret(rand.Reader, DefaultSecretSize)
	require.NoError(t, err)

	opts := DefaultTOTPOptions()
	opts.Window = 0
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := ComputeTOTP(secret, now, opts.Period, opts.Digits, opts.Algorithm)
	require.NoError(t, err)

	_, ok, err := VerifyTOTP(secret, code, now, opts)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyTOTP_Window(t *testing.T) {
	opts := TOTPOptions{Period: 30, Digits: 6, Algorithm: otp.AlgorithmSHA1}
	issuedAt := time.Unix(30, 0) // counter 1, code 287082
	nextStep := issuedAt.Add(30 * time.Second)

	opts.Window = 0
	_, ok, err := VerifyTOTP(rfcSecretSHA1, "287082", issuedAt, opts)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = VerifyTOTP(rfcSecretSHA1, "287082", nextStep, opts)
	require.NoError(t, err)
	assert.False(t, ok, "window=0 must reject the previous step")

	opts.Window = 1
	counter, ok, err := VerifyTOTP(rfcSecretSHA1, "287082", nextStep, opts)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), counter)

	_, ok, err = VerifyTOTP(rfcSecretSHA1, "755224", nextStep, opts)
	require.NoError(t, err)
	assert.False(t, ok, "two steps back is outside window=1")
}

func TestVerifyTOTP_WindowAtEpochStart(t *testing.T) {
	opts := TOTPOptions{Period: 30, Digits: 6, Algorithm: otp.AlgorithmSHA1, Window: 2}

	counter, ok, err := VerifyTOTP(rfcSecretSHA1, "755224", time.Unix(0, 0), opts)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), counter)
}

func TestVerifyTOTP_NormalizesInput(t *testing.T) {
	opts := TOTPOptions{Period: 30, Digits: 6, Algorithm: otp.AlgorithmSHA1}

	_, ok, err := VerifyTOTP(rfcSecretSHA1, " 287 082 ", time.Unix(30, 0), opts)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyTOTP_WrongLengthFailsClosed(t *testing.T) {
	opts := DefaultTOTPOptions()

	_, ok, err := VerifyTOTP(rfcSecretSHA1, "12345", time.Now(), opts)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = VerifyTOTP(rfcSecretSHA1, "", time.Now(), opts)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyTOTP_InvalidOptions(t *testing.T) {
	_, _, err := VerifyTOTP(rfcSecretSHA1, "123456", time.Now(), TOTPOptions{Period: 30, Digits: 4})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

// ============================================================================
// Secret Tests
// ============================================================================

func TestGenerateTOTPSecret_UsesReader(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0xAB}, 64))

	secret, err := GenerateTOTPSecret(src, 20)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 20), secret)
}

func TestGenerateTOTPSecret_TooSmall(t *testing.T) {
	_, err := GenerateTOTPSecret(rand.Reader, 8)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestEncodeDecodeSecret(t *testing.T) {
	encoded := EncodeSecret(rfcSecretSHA1)
	assert.Equal(t, "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", encoded)

	decoded, err := DecodeSecret(strings.ToLower(encoded[:8]) + " " + encoded[8:])
	require.NoError(t, err)
	assert.Equal(t, rfcSecretSHA1, decoded)

	_, err = DecodeSecret("not base32 !!")
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("sha-256")
	require.NoError(t, err)
	assert.Equal(t, otp.AlgorithmSHA256, alg)

	alg, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, otp.AlgorithmSHA1, alg)

	_, err = ParseAlgorithm("md4")
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

// ============================================================================
// TOTPManager Tests
// ============================================================================

func TestTOTPManager_NewTOTPManager_Validation(t *testing.T) {
	_, err := NewTOTPManager("", DefaultTOTPOptions())
	assert.ErrorIs(t, err, models.ErrConfiguration)

	bad := DefaultTOTPOptions()
	bad.Period = 0
	_, err = NewTOTPManager("Acme", bad)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestTOTPManager_ProvisioningURI(t *testing.T) {
	tm, err := NewTOTPManager("Acme", DefaultTOTPOptions())
	require.NoError(t, err)

	uri, err := tm.ProvisioningURI("alice@example.com", rfcSecretSHA1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	assert.Contains(t, uri, "secret=GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ")
	assert.Contains(t, uri, "issuer=Acme")
}

func TestTOTPManager_QRCodeDataURL(t *testing.T) {
	tm, err := NewTOTPManager("Acme", DefaultTOTPOptions())
	require.NoError(t, err)

	dataURL, err := tm.QRCodeDataURL("otpauth://totp/Acme:alice?secret=ABC")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))
}
