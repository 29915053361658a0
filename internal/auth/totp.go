package auth

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSecretSize = 20 // 160 bits, RFC 4226 recommendation
	MinSecretSize     = 16
	DefaultQRSize     = 256
)

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPOptions holds the RFC 6238 parameters shared by generation and verification
type TOTPOptions struct {
	Period    uint
	Digits    int
	Algorithm otp.Algorithm
	Window    int // accepted drift in steps on either side
}

// DefaultTOTPOptions matches what authenticator apps assume when the URI omits parameters.
func DefaultTOTPOptions() TOTPOptions {
	return TOTPOptions{Period: 30, Digits: 6, Algorithm: otp.AlgorithmSHA1, Window: 1}
}

// Validate checks the options are usable
func (o TOTPOptions) Validate() error {
	if o.Period == 0 {
		return models.ConfigError("totp period must be positive")
	}
	if o.Digits < 6 || o.Digits > 8 {
		return models.ConfigError("totp digits must be between 6 and 8, got %d", o.Digits)
	}
	if o.Window < 0 {
		return models.ConfigError("totp window must not be negative, got %d", o.Window)
	}
	return nil
}

// ParseAlgorithm maps a config string (SHA1, SHA256, SHA512) to an otp.Algorithm
func ParseAlgorithm(name string) (otp.Algorithm, error) {
	switch strings.ToUpper(strings.ReplaceAll(name, "-", "")) {
	case "", "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	}
	return otp.AlgorithmSHA1, models.ConfigError("unsupported totp algorithm %q", name)
}

// GenerateTOTPSecret returns size random bytes. A nil reader falls back to crypto/rand.
func GenerateTOTPSecret(r io.Reader, size int) ([]byte, error) {
	if size < MinSecretSize {
		return nil, models.ConfigError("totp secret must be at least %d bytes, got %d", MinSecretSize, size)
	}
	if r == nil {
		r = rand.Reader
	}
	secret := make([]byte, size)
	if _, err := io.ReadFull(r, secret); err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}
	return secret, nil
}

// EncodeSecret renders a raw secret as unpadded base32, the form authenticator apps accept.
func EncodeSecret(secret []byte) string {
	return secretEncoding.EncodeToString(secret)
}

// DecodeSecret parses a base32 secret, tolerating spaces, lowercase and padding.
func DecodeSecret(encoded string) ([]byte, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(encoded), " ", ""))
	cleaned = strings.TrimRight(cleaned, "=")
	secret, err := secretEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, models.ConfigError("malformed totp secret")
	}
	return secret, nil
}

// ComputeTOTP returns the code for the step containing t
func ComputeTOTP(secret []byte, t time.Time, period uint, digits int, algorithm otp.Algorithm) (string, error) {
	if period == 0 {
		return "", models.ConfigError("totp period must be positive")
	}
	return computeAtCounter(secret, uint64(t.Unix())/uint64(period), digits, algorithm)
}

func computeAtCounter(secret []byte, counter uint64, digits int, algorithm otp.Algorithm) (string, error) {
	if len(secret) == 0 {
		return "", models.ConfigError("totp secret is empty")
	}
	code, err := hotp.GenerateCodeCustom(EncodeSecret(secret), counter, hotp.ValidateOpts{
		Digits:    otp.Digits(digits),
		Algorithm: algorithm,
	})
	if err != nil {
		return "", models.ConfigError("failed to compute totp: %v", err)
	}
	return code, nil
}

// VerifyTOTP checks code against every step in [c-window, c+window] around t.
// It returns the matched counter so callers can refuse a second use of the same step.
func VerifyTOTP(secret []byte, code string, t time.Time, opts TOTPOptions) (uint64, bool, error) {
	if err := opts.Validate(); err != nil {
		return 0, false, err
	}

	code = NormalizeNumericCode(code)
	if len(code) != opts.Digits {
		return 0, false, nil
	}

	current := uint64(t.Unix()) / uint64(opts.Period)
	for k := -opts.Window; k <= opts.Window; k++ {
		if k < 0 && uint64(-k) > current {
			continue
		}
		counter := uint64(int64(current) + int64(k))
		expected, err := computeAtCounter(secret, counter, opts.Digits, opts.Algorithm)
		if err != nil {
			return 0, false, err
		}
		if MatchNumericCode(expected, code) {
			return counter, true, nil
		}
	}
	return 0, false, nil
}

// TOTPManager builds provisioning payloads for authenticator apps
type TOTPManager struct {
	issuer string
	opts   TOTPOptions
	qrSize int
}

// NewTOTPManager creates a new TOTP manager
func NewTOTPManager(issuer string, opts TOTPOptions) (*TOTPManager, error) {
	if issuer == "" {
		return nil, models.ConfigError("totp issuer is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &TOTPManager{issuer: issuer, opts: opts, qrSize: DefaultQRSize}, nil
}

// Options returns the manager's TOTP parameters
func (tm *TOTPManager) Options() TOTPOptions {
	return tm.opts
}

// ProvisioningURI returns the otpauth:// URI for secret under accountName
func (tm *TOTPManager) ProvisioningURI(accountName string, secret []byte) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountName,
		Period:      tm.opts.Period,
		Secret:      secret,
		Digits:      otp.Digits(tm.opts.Digits),
		Algorithm:   tm.opts.Algorithm,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.URL(), nil
}

// QRCodeDataURL renders payload as a PNG data URL
func (tm *TOTPManager) QRCodeDataURL(payload string) (string, error) {
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(tm.qrSize)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
