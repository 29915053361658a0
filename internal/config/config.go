package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Redis     RedisConfig
	TwoFactor TwoFactorConfig
	Delivery  DeliveryConfig
	Cleanup   CleanupConfig
}

type DatabaseConfig struct {
	Host              string `validate:"required"`
	Port              int    `validate:"min=1,max=65535"`
	User              string `validate:"required"`
	Password          string `validate:"required"`
	Name              string `validate:"required"`
	SSLMode           string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns          int32  `validate:"min=1"`
	MinConns          int32  `validate:"min=0"`
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration `validate:"min=1s"`
}

// ServerConfig configures the worker's operational HTTP listener
type ServerConfig struct {
	Port         string `validate:"required"`
	Env          string `validate:"oneof=development test staging production"`
	LogLevel     string `validate:"oneof=debug info warn error"`
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// OpsRequestsPerMinute bounds /health and /metrics per client IP
	OpsRequestsPerMinute int `validate:"min=1"`
}

type RedisConfig struct {
	Enabled    bool
	Addrs      []string `validate:"required_if=Enabled true,dive,hostname_port"`
	Password   string
	DB         int `validate:"min=0"`
	UseCluster bool
	Prefix     string
}

type TwoFactorConfig struct {
	Issuer         string   `validate:"required"`
	EnabledMethods []string `validate:"min=1,dive,oneof=totp email sms"`
	// EncryptionKey seals TOTP secrets at rest (AES-256)
	EncryptionKey []byte `validate:"len=32"`

	TOTPPeriod     int    `validate:"min=15,max=120"`
	TOTPDigits     int    `validate:"min=6,max=8"`
	TOTPWindow     int    `validate:"min=0,max=5"`
	TOTPAlgorithm  string `validate:"oneof=SHA1 SHA256 SHA512"`
	TOTPSecretSize int    `validate:"min=16,max=64"`

	OTPLength int           `validate:"min=4,max=10"`
	OTPExpiry time.Duration `validate:"min=30s"`

	RecoveryEnabled  bool
	RecoveryCount    int `validate:"min=1,max=50"`
	RecoveryLength   int `validate:"min=8,max=32"`
	RecoveryHashCost int `validate:"min=4,max=31"`

	RateLimitMaxAttempts int           `validate:"min=1"`
	RateLimitDecay       time.Duration `validate:"min=1s"`
	ConfirmRateLimited   bool

	DeviceTrustEnabled    bool
	DeviceTrustDuration   time.Duration
	DeviceTrustSigningKey string `validate:"required_if=DeviceTrustEnabled true"`

	Classification string `validate:"oneof=fallback strict"`

	FailureDelay  time.Duration
	FailureJitter time.Duration
}

type DeliveryConfig struct {
	EmailProvider string `validate:"oneof=ses smtp log none"`
	SMSProvider   string `validate:"oneof=twilio log none"`
	FromEmail     string `validate:"omitempty,email"`
	FromName      string

	SESRegion string

	SMTPHost     string
	SMTPPort     int `validate:"min=0,max=65535"`
	SMTPUsername string
	SMTPPassword string
	SMTPTLS      bool

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string `validate:"omitempty,e164"`
}

type CleanupConfig struct {
	Interval         time.Duration `validate:"min=1s"`
	AttemptRetention time.Duration `validate:"min=1h"`
}

var validate = validator.New()

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	encryptionKey, err := decodeKey(getEnv("TWO_FACTOR_ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "twofactor"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			ConnectTimeout:    getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Server: ServerConfig{
			Port:                 getEnv("PORT", "9090"),
			Env:                  env,
			LogLevel:             getEnv("LOG_LEVEL", "info"),
			ReadTimeout:          getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:         getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:          getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			OpsRequestsPerMinute: getEnvAsInt("OPS_REQUESTS_PER_MINUTE", 120),
		},
		Redis: RedisConfig{
			Enabled:    getEnvAsBool("REDIS_ENABLED", false),
			Addrs:      getEnvAsList("REDIS_ADDRS", []string{"localhost:6379"}),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			UseCluster: getEnvAsBool("REDIS_CLUSTER", false),
			Prefix:     getEnv("REDIS_PREFIX", "2fa"),
		},
		TwoFactor: TwoFactorConfig{
			Issuer:         getEnv("TWO_FACTOR_ISSUER", "TwoFactor"),
			EnabledMethods: getEnvAsList("TWO_FACTOR_METHODS", []string{"totp"}),
			EncryptionKey:  encryptionKey,

			TOTPPeriod:     getEnvAsInt("TWO_FACTOR_TOTP_PERIOD", 30),
			TOTPDigits:     getEnvAsInt("TWO_FACTOR_TOTP_DIGITS", 6),
			TOTPWindow:     getEnvAsInt("TWO_FACTOR_TOTP_WINDOW", 1),
			TOTPAlgorithm:  strings.ToUpper(getEnv("TWO_FACTOR_TOTP_ALGORITHM", "SHA1")),
			TOTPSecretSize: getEnvAsInt("TWO_FACTOR_TOTP_SECRET_SIZE", 20),

			OTPLength: getEnvAsInt("TWO_FACTOR_OTP_LENGTH", 6),
			OTPExpiry: getEnvAsDuration("TWO_FACTOR_OTP_EXPIRY", 10*time.Minute),

			RecoveryEnabled:  getEnvAsBool("TWO_FACTOR_RECOVERY_ENABLED", true),
			RecoveryCount:    getEnvAsInt("TWO_FACTOR_RECOVERY_COUNT", 8),
			RecoveryLength:   getEnvAsInt("TWO_FACTOR_RECOVERY_LENGTH", 8),
			RecoveryHashCost: getEnvAsInt("TWO_FACTOR_RECOVERY_HASH_COST", 10),

			RateLimitMaxAttempts: getEnvAsInt("TWO_FACTOR_MAX_ATTEMPTS", 5),
			RateLimitDecay:       getEnvAsDuration("TWO_FACTOR_DECAY", 15*time.Minute),
			ConfirmRateLimited:   getEnvAsBool("TWO_FACTOR_CONFIRM_RATE_LIMITED", false),

			DeviceTrustEnabled:    getEnvAsBool("TWO_FACTOR_REMEMBER_ENABLED", true),
			DeviceTrustDuration:   getEnvAsDuration("TWO_FACTOR_REMEMBER_DURATION", 30*24*time.Hour),
			DeviceTrustSigningKey: getEnv("TWO_FACTOR_DEVICE_SIGNING_KEY", ""),

			Classification: getEnv("TWO_FACTOR_CLASSIFICATION", "fallback"),

			FailureDelay:  getEnvAsDuration("TWO_FACTOR_FAILURE_DELAY", 100*time.Millisecond),
			FailureJitter: getEnvAsDuration("TWO_FACTOR_FAILURE_JITTER", 50*time.Millisecond),
		},
		Delivery: DeliveryConfig{
			EmailProvider: getEnv("EMAIL_PROVIDER", "log"),
			SMSProvider:   getEnv("SMS_PROVIDER", "log"),
			FromEmail:     getEnv("EMAIL_FROM", ""),
			FromName:      getEnv("EMAIL_FROM_NAME", ""),

			SESRegion: getEnv("AWS_REGION", "us-east-1"),

			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPTLS:      getEnvAsBool("SMTP_TLS", true),

			TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		},
		Cleanup: CleanupConfig{
			Interval:         getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			AttemptRetention: getEnvAsDuration("CLEANUP_ATTEMPT_RETENTION", 90*24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate runs struct tag rules and the cross-field checks tags cannot express
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %s", formatValidationError(err))
	}

	for _, m := range c.TwoFactor.EnabledMethods {
		switch m {
		case "email":
			if c.Delivery.EmailProvider == "none" {
				return fmt.Errorf("EMAIL_PROVIDER is required when email two-factor is enabled")
			}
		case "sms":
			if c.Delivery.SMSProvider == "none" {
				return fmt.Errorf("SMS_PROVIDER is required when sms two-factor is enabled")
			}
		}
	}

	if c.TwoFactor.DeviceTrustEnabled && len(c.TwoFactor.DeviceTrustSigningKey) < 32 {
		return fmt.Errorf("TWO_FACTOR_DEVICE_SIGNING_KEY must be at least 32 characters")
	}

	switch c.Delivery.EmailProvider {
	case "ses", "smtp":
		if c.Delivery.FromEmail == "" {
			return fmt.Errorf("EMAIL_FROM is required for the %s email provider", c.Delivery.EmailProvider)
		}
	}
	if c.Delivery.EmailProvider == "smtp" && c.Delivery.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required for the smtp email provider")
	}
	if c.Delivery.SMSProvider == "twilio" {
		if c.Delivery.TwilioAccountSID == "" || c.Delivery.TwilioAuthToken == "" || c.Delivery.TwilioFromNumber == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required for the twilio sms provider")
		}
	}

	if c.Server.Env == "production" && c.Delivery.EmailProvider == "log" && c.HasMethod("email") {
		return fmt.Errorf("the log email provider cannot be used in production")
	}

	return nil
}

// HasMethod reports whether a two-factor method is switched on
func (c *Config) HasMethod(method string) bool {
	for _, m := range c.TwoFactor.EnabledMethods {
		if m == method {
			return true
		}
	}
	return false
}

func formatValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// decodeKey accepts a 32-byte key as base64 or hex
func decodeKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("TWO_FACTOR_ENCRYPTION_KEY is required")
	}
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := hex.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, fmt.Errorf("TWO_FACTOR_ENCRYPTION_KEY must be 32 bytes encoded as base64 or hex")
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL renders the config as a postgres:// URL for database/sql drivers
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
