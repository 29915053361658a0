package logger

import (
	"log/slog"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Mask username: keep first char, mask rest
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Mask all but the TLD
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// SanitizedPhone keeps the last four digits of a phone number (e.g., "********4567")
func SanitizedPhone(phone string) string {
	digits := strings.TrimSpace(phone)
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// SanitizedDestination masks an email address or phone number
func SanitizedDestination(destination string) string {
	if strings.Contains(destination, "@") {
		return SanitizedEmail(destination)
	}
	return SanitizedPhone(destination)
}

// MaskedEmailAttr returns an slog attribute with the email masked
func MaskedEmailAttr(key, email string) slog.Attr {
	return slog.String(key, SanitizedEmail(email))
}

// MaskedPhoneAttr returns an slog attribute with the phone number masked
func MaskedPhoneAttr(key, phone string) slog.Attr {
	return slog.String(key, SanitizedPhone(phone))
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString reports whether a query string carries a parameter
// that must not reach the logs
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{"code", "token", "secret", "credential", "email", "phone", "recovery"}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
