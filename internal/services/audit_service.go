package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/auth"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/repositories"
)

// AttemptRecord describes one two-factor attempt before it is persisted
type AttemptRecord struct {
	UserID        string
	Meta          models.RequestMeta
	Method        string
	Type          models.AttemptType
	Success       bool
	FailureReason string
	Code          string // plaintext submission, only its hash is kept
}

// AuditService writes the attempt trail with a dual-write pattern (slog + database)
type AuditService struct {
	repo   repositories.AuthAttemptRepository
	clock  clock.Clock
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo repositories.AuthAttemptRepository, clk clock.Clock, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

// RecordAttempt logs and persists an attempt. Persistence failures are logged
// and swallowed; the attempt outcome stands regardless.
func (s *AuditService) RecordAttempt(ctx context.Context, rec AttemptRecord) {
	attempt := &models.AuthAttempt{
		IPAddress:   rec.Meta.IPAddress,
		UserAgent:   rec.Meta.UserAgent,
		Method:      rec.Method,
		Type:        rec.Type,
		Successful:  rec.Success,
		AttemptedAt: s.clock.Now(),
	}
	if rec.UserID != "" {
		userID := rec.UserID
		attempt.UserID = &userID
	}
	if !rec.Success && rec.FailureReason != "" {
		reason := rec.FailureReason
		attempt.FailureReason = &reason
	}
	if normalized := auth.NormalizeRecoveryCode(rec.Code); normalized != "" {
		attempt.CodeHash = auth.HashCode(normalized)
	}

	// Dual-write: immediate slog output
	if rec.Success {
		s.logger.InfoContext(ctx, "two-factor attempt",
			slog.String("user_id", rec.UserID),
			slog.String("method", rec.Method),
			slog.String("type", string(rec.Type)),
			slog.String("ip_address", rec.Meta.IPAddress),
		)
	} else {
		s.logger.InfoContext(ctx, "two-factor attempt failed",
			slog.String("user_id", rec.UserID),
			slog.String("method", rec.Method),
			slog.String("type", string(rec.Type)),
			slog.String("failure_reason", rec.FailureReason),
			slog.String("ip_address", rec.Meta.IPAddress),
		)
	}

	if err := s.repo.Create(ctx, attempt); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist two-factor attempt",
			slog.String("user_id", rec.UserID),
			slog.Any("error", err),
		)
	}
}

// Stats aggregates the user's attempts since the given time
func (s *AuditService) Stats(ctx context.Context, userID string, since time.Time) (*models.AttemptStats, error) {
	stats, err := s.repo.Stats(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt statistics: %w", err)
	}
	return stats, nil
}

// Prune deletes attempts older than retention
func (s *AuditService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.repo.DeleteOlderThan(ctx, s.clock.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	return n, nil
}
