package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DeviceTokenBytes   = 32 // 256 bits
	MinSigningKeyBytes = 32
	deviceTokenType    = "remember_device"
)

// ErrInvalidDeviceToken is returned for credentials that fail signature, expiry or shape checks
var ErrInvalidDeviceToken = errors.New("invalid device token")

// DeviceClaims is the payload of a remember-device credential
type DeviceClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// GenerateDeviceToken returns a base64url encoded 256-bit random token
func GenerateDeviceToken(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, DeviceTokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate device token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TokenManager signs and parses remember-device credentials.
// The session token travels as the jti so the storage lookup stays an exact (user, token) match.
type TokenManager struct {
	secret []byte
	issuer string
	clock  clock.Clock
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret []byte, issuer string, clk clock.Clock) (*TokenManager, error) {
	if len(secret) < MinSigningKeyBytes {
		return nil, models.ConfigError("device token signing key must be at least %d bytes, got %d", MinSigningKeyBytes, len(secret))
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &TokenManager{secret: secret, issuer: issuer, clock: clk}, nil
}

// Sign wraps a session token into a credential bound to userID that expires at expiresAt
func (tm *TokenManager) Sign(userID, sessionToken string, expiresAt time.Time) (string, error) {
	now := tm.clock.Now()
	claims := &DeviceClaims{
		Type: deviceTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   userID,
			ID:        sessionToken,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign device token: %w", err)
	}
	return signed, nil
}

// Parse verifies a credential and returns the user id and session token it carries
func (tm *TokenManager) Parse(credential string) (userID, sessionToken string, err error) {
	return tm.parse(credential,
		jwt.WithTimeFunc(tm.clock.Now),
		jwt.WithExpirationRequired(),
	)
}

// ParseExpired verifies the signature only, so an expired credential can still
// name the session it should revoke.
func (tm *TokenManager) ParseExpired(credential string) (userID, sessionToken string, err error) {
	return tm.parse(credential, jwt.WithoutClaimsValidation())
}

func (tm *TokenManager) parse(credential string, opts ...jwt.ParserOption) (userID, sessionToken string, err error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &DeviceClaims{}
	_, err = jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidDeviceToken, err)
	}

	if claims.Type != deviceTokenType || claims.Subject == "" || claims.ID == "" {
		return "", "", ErrInvalidDeviceToken
	}
	if tm.issuer != "" && claims.Issuer != tm.issuer {
		return "", "", ErrInvalidDeviceToken
	}

	return claims.Subject, claims.ID, nil
}
