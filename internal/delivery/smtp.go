package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/logger"
	"github.com/wneessen/go-mail"
)

// SMTPConfig describes the outgoing mail server
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	FromName string
}

// mailSender is satisfied by *mail.Client
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPProvider sends email through an SMTP relay
type SMTPProvider struct {
	config SMTPConfig
	client mailSender
	logger *slog.Logger
}

// NewSMTPProvider builds a go-mail client for cfg
func NewSMTPProvider(cfg SMTPConfig, logger *slog.Logger) (*SMTPProvider, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &SMTPProvider{config: cfg, client: client, logger: logger}, nil
}

func (p *SMTPProvider) Name() string { return "smtp" }

func (p *SMTPProvider) buildMessage(destination string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	var err error
	if p.config.FromName != "" {
		err = m.FromFormat(p.config.FromName, p.config.From)
	} else {
		err = m.From(p.config.From)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set from address: %w", err)
	}

	if err := m.To(destination); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}

	m.SetMessageID()
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func (p *SMTPProvider) Send(ctx context.Context, destination string, msg Message) (*Result, error) {
	if err := requireDestination(destination); err != nil {
		return nil, err
	}

	m, err := p.buildMessage(destination, msg)
	if err != nil {
		return nil, err
	}

	if err := p.client.DialAndSendWithContext(ctx, m); err != nil {
		p.logger.Error("failed to send email via SMTP",
			logger.MaskedEmailAttr("email", destination),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	p.logger.Info("email sent", logger.MaskedEmailAttr("email", destination), slog.String("provider", p.Name()))
	result := &Result{Provider: p.Name()}
	if ids := m.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		result.MessageID = ids[0]
	}
	return result, nil
}
