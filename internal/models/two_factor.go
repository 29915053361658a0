package models

import (
	"fmt"
	"time"
)

// Method identifies how a user proves possession of their second factor.
type Method string

const (
	MethodTOTP  Method = "totp"
	MethodEmail Method = "email"
	MethodSMS   Method = "sms"
)

// ParseMethod converts a string into a known Method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodTOTP, MethodEmail, MethodSMS:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown two-factor method %q", ErrInvalidInput, s)
}

func (m Method) String() string {
	return string(m)
}

// UsesDeliveredCode reports whether the method relies on a code sent by a delivery provider.
func (m Method) UsesDeliveredCode() bool {
	return m == MethodEmail || m == MethodSMS
}

// TwoFactorAuth is the per-user two-factor record.
// Secret always holds plaintext here; sealing happens at the storage boundary.
type TwoFactorAuth struct {
	ID                     string
	UserID                 string
	Enabled                bool
	Method                 Method
	Secret                 []byte // raw TOTP secret, nil for email/sms
	PhoneNumber            string
	ConfirmedAt            *time.Time
	BackupCodesGeneratedAt *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsConfirmed checks if the user has proven possession of the method
func (t *TwoFactorAuth) IsConfirmed() bool {
	return t.ConfirmedAt != nil
}

// IsActive reports whether verification should be required for the user.
func (t *TwoFactorAuth) IsActive() bool {
	return t.Enabled && t.ConfirmedAt != nil
}

// IsPending reports whether the record is waiting for a confirmation code.
func (t *TwoFactorAuth) IsPending() bool {
	return !t.Enabled && t.ConfirmedAt == nil
}

// UserProfile carries the contact details the caller knows about a user.
type UserProfile struct {
	UserID      string `validate:"required"`
	Email       string `validate:"omitempty,email"`
	PhoneNumber string `validate:"omitempty,e164"`
	DisplayName string
}

// RequestMeta describes the client that submitted a code.
type RequestMeta struct {
	IPAddress      string
	UserAgent      string
	Accept         string
	AcceptLanguage string
	AcceptEncoding string
}

// EnableOptions tunes an Enable call.
type EnableOptions struct {
	// PhoneNumber overrides the profile number for sms enrollment.
	PhoneNumber string `validate:"omitempty,e164"`
	// SkipRecoveryCodes suppresses recovery code generation for this enrollment.
	SkipRecoveryCodes bool
}

// SetupResult is returned once from Enable. Nothing in it can be retrieved again.
type SetupResult struct {
	Method        Method   `json:"method"`
	Secret        string   `json:"secret,omitempty"`     // base32, totp only
	QRPayload     string   `json:"qr_payload,omitempty"` // otpauth:// URI
	QRCodeDataURL string   `json:"qr_code,omitempty"`    // PNG data URL
	RecoveryCodes []string `json:"recovery_codes,omitempty"`
	CodeSent      bool     `json:"code_sent"`
	Destination   string   `json:"destination,omitempty"` // masked
}

// VerifyRequest is the input to a verification challenge.
type VerifyRequest struct {
	UserID         string
	Code           string
	RememberDevice bool
	Meta           RequestMeta
}

// VerifyResult describes a successful verification.
type VerifyResult struct {
	Verified               bool   `json:"verified"`
	Method                 Method `json:"method"`
	UsedRecoveryCode       bool   `json:"used_recovery_code"`
	RecoveryCodesRemaining int    `json:"recovery_codes_remaining"`
	DeviceToken            string `json:"device_token,omitempty"`
}

// Status is the externally visible two-factor state of a user.
type Status struct {
	Enabled                  bool       `json:"enabled"`
	Method                   Method     `json:"method,omitempty"`
	Confirmed                bool       `json:"confirmed"`
	RecoveryCodesRemaining   int        `json:"recovery_codes_remaining"`
	PhoneNumber              string     `json:"phone_number,omitempty"` // masked
	ConfirmedAt              *time.Time `json:"confirmed_at,omitempty"`
	RecoveryCodesGeneratedAt *time.Time `json:"recovery_codes_generated_at,omitempty"`
	RememberedDevices        int        `json:"remembered_devices"`
}

// TwoFactorAuthRecord is the persisted form of TwoFactorAuth with the secret sealed.
type TwoFactorAuthRecord struct {
	ID                     string
	UserID                 string
	Enabled                bool
	Method                 Method
	SecretEncrypted        []byte // AES-256-GCM nonce || ciphertext, nil for email/sms
	PhoneNumber            string
	ConfirmedAt            *time.Time
	BackupCodesGeneratedAt *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
