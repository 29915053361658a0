package config

import (
	"encoding/base64"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Clearenv()
	t.Setenv("DB_PASSWORD", "test")
	t.Setenv("TWO_FACTOR_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(testKey))
	t.Setenv("TWO_FACTOR_DEVICE_SIGNING_KEY", "device-signing-key-32-characters!")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testKey, cfg.TwoFactor.EncryptionKey)
	assert.Equal(t, []string{"totp"}, cfg.TwoFactor.EnabledMethods)
	assert.Equal(t, 30, cfg.TwoFactor.TOTPPeriod)
	assert.Equal(t, 6, cfg.TwoFactor.TOTPDigits)
	assert.Equal(t, 1, cfg.TwoFactor.TOTPWindow)
	assert.Equal(t, "SHA1", cfg.TwoFactor.TOTPAlgorithm)
	assert.Equal(t, 6, cfg.TwoFactor.OTPLength)
	assert.Equal(t, 8, cfg.TwoFactor.RecoveryCount)
	assert.Equal(t, 8, cfg.TwoFactor.RecoveryLength)
	assert.Equal(t, 5, cfg.TwoFactor.RateLimitMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.TwoFactor.RateLimitDecay)
	assert.False(t, cfg.TwoFactor.ConfirmRateLimited)
	assert.Equal(t, "fallback", cfg.TwoFactor.Classification)
	assert.Equal(t, 30*24*time.Hour, cfg.TwoFactor.DeviceTrustDuration)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 90*24*time.Hour, cfg.Cleanup.AttemptRetention)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TWO_FACTOR_ENCRYPTION_KEY", hex.EncodeToString(testKey))
	t.Setenv("TWO_FACTOR_METHODS", "totp, email ,sms")
	t.Setenv("TWO_FACTOR_TOTP_ALGORITHM", "sha256")
	t.Setenv("TWO_FACTOR_MAX_ATTEMPTS", "3")
	t.Setenv("TWO_FACTOR_DECAY", "5m")
	t.Setenv("TWO_FACTOR_CONFIRM_RATE_LIMITED", "true")
	t.Setenv("TWO_FACTOR_CLASSIFICATION", "strict")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDRS", "redis-a:6379,redis-b:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testKey, cfg.TwoFactor.EncryptionKey)
	assert.Equal(t, []string{"totp", "email", "sms"}, cfg.TwoFactor.EnabledMethods)
	assert.True(t, cfg.HasMethod("sms"))
	assert.Equal(t, "SHA256", cfg.TwoFactor.TOTPAlgorithm)
	assert.Equal(t, 3, cfg.TwoFactor.RateLimitMaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.TwoFactor.RateLimitDecay)
	assert.True(t, cfg.TwoFactor.ConfirmRateLimited)
	assert.Equal(t, "strict", cfg.TwoFactor.Classification)
	assert.Equal(t, []string{"redis-a:6379", "redis-b:6379"}, cfg.Redis.Addrs)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		errorContains string
	}{
		{
			name:          "missing encryption key",
			env:           map[string]string{"TWO_FACTOR_ENCRYPTION_KEY": ""},
			errorContains: "TWO_FACTOR_ENCRYPTION_KEY is required",
		},
		{
			name:          "short encryption key",
			env:           map[string]string{"TWO_FACTOR_ENCRYPTION_KEY": base64.StdEncoding.EncodeToString([]byte("short"))},
			errorContains: "must be 32 bytes",
		},
		{
			name:          "missing db password",
			env:           map[string]string{"DB_PASSWORD": ""},
			errorContains: "Password",
		},
		{
			name:          "unknown method",
			env:           map[string]string{"TWO_FACTOR_METHODS": "totp,fax"},
			errorContains: "EnabledMethods",
		},
		{
			name:          "short signing key",
			env:           map[string]string{"TWO_FACTOR_DEVICE_SIGNING_KEY": "too-short"},
			errorContains: "TWO_FACTOR_DEVICE_SIGNING_KEY",
		},
		{
			name:          "email without provider",
			env:           map[string]string{"TWO_FACTOR_METHODS": "email", "EMAIL_PROVIDER": "none"},
			errorContains: "EMAIL_PROVIDER is required",
		},
		{
			name:          "smtp without host",
			env:           map[string]string{"EMAIL_PROVIDER": "smtp", "EMAIL_FROM": "noreply@example.com"},
			errorContains: "SMTP_HOST is required",
		},
		{
			name:          "twilio without credentials",
			env:           map[string]string{"SMS_PROVIDER": "twilio"},
			errorContains: "TWILIO_ACCOUNT_SID",
		},
		{
			name:          "log email in production",
			env:           map[string]string{"ENV": "production", "TWO_FACTOR_METHODS": "totp,email"},
			errorContains: "log email provider",
		},
		{
			name:          "bad classification",
			env:           map[string]string{"TWO_FACTOR_CLASSIFICATION": "guess"},
			errorContains: "Classification",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestDatabaseConfig_DSNAndURL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable", c.DSN())
	assert.Equal(t, "postgres://u:p@db:5433/n?sslmode=disable", c.URL())
}
