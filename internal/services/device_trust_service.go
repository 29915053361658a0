package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/auth"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/repositories"
)

// DeviceTrustService remembers devices that recently passed verification
type DeviceTrustService struct {
	repo   repositories.DeviceSessionRepository
	tokens *auth.TokenManager
	random io.Reader
	clock  clock.Clock
	logger *slog.Logger
}

// NewDeviceTrustService creates a new DeviceTrustService
func NewDeviceTrustService(
	repo repositories.DeviceSessionRepository,
	tokens *auth.TokenManager,
	random io.Reader,
	clk clock.Clock,
	logger *slog.Logger,
) *DeviceTrustService {
	return &DeviceTrustService{
		repo:   repo,
		tokens: tokens,
		random: random,
		clock:  clk,
		logger: logger,
	}
}

// Remember stores a session for the device described by meta and returns the
// signed credential the caller hands to the client. A non-positive duration
// yields a session that is already expired.
func (s *DeviceTrustService) Remember(ctx context.Context, userID string, meta models.RequestMeta, duration time.Duration) (string, error) {
	token, err := auth.GenerateDeviceToken(s.random)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	if duration < 0 {
		duration = 0
	}

	session := &models.DeviceSession{
		UserID:            userID,
		Token:             token,
		DeviceFingerprint: auth.DeviceFingerprint(meta),
		IPAddress:         meta.IPAddress,
		UserAgent:         meta.UserAgent,
		ExpiresAt:         now.Add(duration),
		CreatedAt:         now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to store device session: %w", err)
	}

	credential, err := s.tokens.Sign(userID, token, session.ExpiresAt)
	if err != nil {
		return "", err
	}

	s.logger.Info("device remembered",
		slog.String("user_id", userID),
		slog.String("session_id", session.ID),
		slog.Time("expires_at", session.ExpiresAt))
	return credential, nil
}

// IsRemembered reports whether credential names an active session of userID.
// A valid match refreshes last_used_at.
func (s *DeviceTrustService) IsRemembered(ctx context.Context, userID, credential string) (bool, error) {
	if credential == "" {
		return false, nil
	}

	subject, token, err := s.tokens.Parse(credential)
	if err != nil || subject != userID {
		return false, nil
	}

	now := s.clock.Now()
	session, err := s.repo.FindActive(ctx, userID, token, now)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up device session: %w", err)
	}

	if err := s.repo.Touch(ctx, session.ID, now); err != nil {
		s.logger.Warn("failed to refresh device session",
			slog.String("session_id", session.ID),
			slog.Any("error", err))
	}
	return true, nil
}

// Forget removes the session named by credential, expired or not
func (s *DeviceTrustService) Forget(ctx context.Context, userID, credential string) (int64, error) {
	subject, token, err := s.tokens.ParseExpired(credential)
	if err != nil || subject != userID {
		return 0, nil
	}

	n, err := s.repo.DeleteByToken(ctx, userID, token)
	if err != nil {
		return 0, fmt.Errorf("failed to forget device: %w", err)
	}
	return n, nil
}

// ForgetAll removes every session for the user and returns how many were removed
func (s *DeviceTrustService) ForgetAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to forget devices: %w", err)
	}
	return n, nil
}

// CleanupExpired deletes sessions past their expiry
func (s *DeviceTrustService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired device sessions: %w", err)
	}
	return n, nil
}

// Count returns the number of active sessions for the user
func (s *DeviceTrustService) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.CountActive(ctx, userID, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to count device sessions: %w", err)
	}
	return n, nil
}

// List returns the user's active sessions scored against the current request.
// currentCredential, when valid, marks the caller's own session.
func (s *DeviceTrustService) List(ctx context.Context, userID string, current models.RequestMeta, currentCredential string) ([]models.DeviceSummary, error) {
	now := s.clock.Now()
	sessions, err := s.repo.ListActive(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list device sessions: %w", err)
	}

	var currentToken string
	if currentCredential != "" {
		if subject, token, err := s.tokens.Parse(currentCredential); err == nil && subject == userID {
			currentToken = token
		}
	}

	summaries := make([]models.DeviceSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, models.DeviceSummary{
			ID:            session.ID,
			IPAddress:     session.IPAddress,
			UserAgent:     session.UserAgent,
			CreatedAt:     session.CreatedAt,
			LastUsedAt:    session.LastUsedAt,
			ExpiresAt:     session.ExpiresAt,
			SecurityScore: auth.SecurityScore(session, current, now),
			Current:       currentToken != "" && session.Token == currentToken,
		})
	}
	return summaries, nil
}
