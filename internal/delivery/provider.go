// Package delivery sends one-time codes over email and SMS.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDestination is returned when a provider is handed an unusable address
var ErrInvalidDestination = errors.New("invalid delivery destination")

// Message is a rendered notification. SMS providers only use Text.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Result reports what the transport accepted
type Result struct {
	Provider  string
	MessageID string
}

// Provider delivers a message to a single destination (email address or E.164 phone number)
type Provider interface {
	Name() string
	Send(ctx context.Context, destination string, msg Message) (*Result, error)
}

// CodeMessage renders the notification carrying a one-time code
func CodeMessage(issuer, code string, expiry time.Duration) Message {
	minutes := int(expiry.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	text := fmt.Sprintf("Your %s verification code is %s. It expires in %d minutes. "+
		"If you did not request this code, you can ignore this message.", issuer, code, minutes)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>%s verification code</h1>
        <p>Use the following code to finish signing in:</p>
        <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">%s</p>
        <p>This code expires in %d minutes.</p>
        <p style="color: #666; font-size: 12px;">If you did not request this code, you can ignore this email.</p>
    </div>
</body>
</html>
`, issuer, code, minutes)

	return Message{
		Subject: fmt.Sprintf("Your %s verification code", issuer),
		Text:    text,
		HTML:    html,
	}
}

func requireDestination(destination string) error {
	if strings.TrimSpace(destination) == "" {
		return ErrInvalidDestination
	}
	return nil
}
