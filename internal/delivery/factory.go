package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/config"
)

// NewEmailProvider builds the configured email transport. It returns nil for "none".
func NewEmailProvider(ctx context.Context, cfg config.DeliveryConfig, env string, logger *slog.Logger) (Provider, error) {
	switch cfg.EmailProvider {
	case "ses":
		p, err := NewSESProvider(ctx, cfg.SESRegion, cfg.FromEmail, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "smtp":
		p, err := NewSMTPProvider(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			TLS:      cfg.SMTPTLS,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.FromEmail,
			FromName: cfg.FromName,
		}, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "log":
		return NewLogProvider("email", env, logger), nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
}

// NewSMSProvider builds the configured SMS transport. It returns nil for "none".
func NewSMSProvider(cfg config.DeliveryConfig, env string, logger *slog.Logger) (Provider, error) {
	switch cfg.SMSProvider {
	case "twilio":
		return NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger), nil
	case "log":
		return NewLogProvider("sms", env, logger), nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown sms provider %q", cfg.SMSProvider)
}
