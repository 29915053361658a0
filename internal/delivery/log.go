package delivery

import (
	"context"
	"log/slog"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/logger"
	"github.com/google/uuid"
)

// LogProvider writes messages to the logger instead of sending them.
// The body is only logged outside production.
type LogProvider struct {
	channel string
	env     string
	logger  *slog.Logger
}

// NewLogProvider creates a LogProvider; channel is "email" or "sms"
func NewLogProvider(channel, env string, logger *slog.Logger) *LogProvider {
	return &LogProvider{channel: channel, env: env, logger: logger}
}

func (p *LogProvider) Name() string { return "log" }

func (p *LogProvider) Send(ctx context.Context, destination string, msg Message) (*Result, error) {
	if err := requireDestination(destination); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	p.logger.LogAttrs(ctx, slog.LevelInfo, "delivery message",
		slog.String("channel", p.channel),
		slog.String("destination", logger.SanitizedDestination(destination)),
		slog.String("subject", msg.Subject),
		logger.RedactedAttr("body", msg.Text, p.env),
		slog.String("message_id", id),
	)
	return &Result{Provider: p.Name(), MessageID: id}, nil
}
