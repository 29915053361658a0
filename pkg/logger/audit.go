package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
)

// Audit event types
const (
	EventEnabled                  = "two_factor_enabled"
	EventConfirmed                = "two_factor_confirmed"
	EventDisabled                 = "two_factor_disabled"
	EventVerified                 = "two_factor_verified"
	EventVerificationFailed       = "two_factor_verification_failed"
	EventRecoveryCodeUsed         = "recovery_code_used"
	EventRecoveryCodesRegenerated = "recovery_codes_regenerated"
	EventDeviceRemembered         = "device_remembered"
	EventDeviceForgotten          = "device_forgotten"
	EventRateLimited              = "two_factor_rate_limited"
	EventCodeSent                 = "two_factor_code_sent"
	EventDeliveryFailed           = "two_factor_delivery_failed"
)

// AuditLogger writes one structured audit record per two-factor event
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// log emits the record. Failures are logged at warn so they stand out in the stream.
func (al *AuditLogger) log(ctx context.Context, eventType string, success bool, e models.Event) {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "two_factor"),
		slog.String("event_type", eventType),
		slog.Bool("success", success),
		slog.String("timestamp", at.UTC().Format(time.RFC3339)),
	}

	if e.UserID != "" {
		attrs = append(attrs, slog.String("user_id", e.UserID))
	}
	if e.Method != "" {
		attrs = append(attrs, slog.String("method", e.Method.String()))
	}
	if e.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", e.IPAddress))
	}
	if e.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", e.UserAgent))
	}
	if e.Reason != "" {
		attrs = append(attrs, slog.String("failure_reason", e.Reason))
	}
	if e.Count > 0 {
		attrs = append(attrs, slog.Int("count", e.Count))
	}

	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

func (al *AuditLogger) OnEnabled(ctx context.Context, e models.Event) {
	al.log(ctx, EventEnabled, true, e)
}

func (al *AuditLogger) OnConfirmed(ctx context.Context, e models.Event) {
	al.log(ctx, EventConfirmed, true, e)
}

func (al *AuditLogger) OnDisabled(ctx context.Context, e models.Event) {
	al.log(ctx, EventDisabled, true, e)
}

func (al *AuditLogger) OnVerified(ctx context.Context, e models.Event) {
	al.log(ctx, EventVerified, true, e)
}

func (al *AuditLogger) OnVerificationFailed(ctx context.Context, e models.Event) {
	al.log(ctx, EventVerificationFailed, false, e)
}

// OnRecoveryCodeUsed records the use; Count is the number of codes left
func (al *AuditLogger) OnRecoveryCodeUsed(ctx context.Context, e models.Event) {
	al.log(ctx, EventRecoveryCodeUsed, true, e)
}

func (al *AuditLogger) OnRecoveryCodesRegenerated(ctx context.Context, e models.Event) {
	al.log(ctx, EventRecoveryCodesRegenerated, true, e)
}

func (al *AuditLogger) OnDeviceRemembered(ctx context.Context, e models.Event) {
	al.log(ctx, EventDeviceRemembered, true, e)
}

func (al *AuditLogger) OnDeviceForgotten(ctx context.Context, e models.Event) {
	al.log(ctx, EventDeviceForgotten, true, e)
}

func (al *AuditLogger) OnRateLimited(ctx context.Context, e models.Event) {
	al.log(ctx, EventRateLimited, false, e)
}

func (al *AuditLogger) OnCodeSent(ctx context.Context, e models.Event) {
	al.log(ctx, EventCodeSent, true, e)
}

func (al *AuditLogger) OnDeliveryFailed(ctx context.Context, e models.Event) {
	al.log(ctx, EventDeliveryFailed, false, e)
}
