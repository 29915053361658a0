package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/cache"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
)

// RateLimitConfig holds configuration for rate limiting behavior
type RateLimitConfig struct {
	MaxAttempts int           // failures allowed per window
	Decay       time.Duration // rolling window length
}

// DefaultRateLimitConfig allows 5 failures per 15 minutes
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts: 5,
		Decay:       15 * time.Minute,
	}
}

// RateLimitService counts failed attempts per key over a rolling window
type RateLimitService struct {
	log    cache.AttemptLog
	config RateLimitConfig
	clock  clock.Clock
	logger *slog.Logger
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(log cache.AttemptLog, config RateLimitConfig, clk clock.Clock, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		log:    log,
		config: config,
		clock:  clk,
		logger: logger,
	}
}

// RateLimitKey builds the limiter key for a user and IP. An empty userID
// yields an IP-only key for flows that happen before the user is known.
func RateLimitKey(userID, ipAddress string) string {
	if userID == "" {
		return "ip:" + ipAddress
	}
	return "user:" + userID + "|ip:" + ipAddress
}

// IsLimited reports whether key has used up its attempts and, if so, how long
// until the oldest counted attempt leaves the window.
func (s *RateLimitService) IsLimited(ctx context.Context, key string) (bool, time.Duration) {
	now := s.clock.Now()

	count, oldest, err := s.log.Window(ctx, key, now.Add(-s.config.Decay))
	if err != nil {
		// Fail open: a cache outage must not lock every user out
		s.logger.Warn("rate limit check failed, allowing attempt",
			slog.String("key", key),
			slog.Any("error", err))
		return false, 0
	}

	if count < s.config.MaxAttempts {
		return false, 0
	}

	retryAfter := oldest.Add(s.config.Decay).Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}

	s.logger.Warn("rate limited",
		slog.String("key", key),
		slog.Int("failed_attempts", count),
		slog.Duration("retry_after", retryAfter))
	return true, retryAfter
}

// RecordAttempt counts one failed attempt against key
func (s *RateLimitService) RecordAttempt(ctx context.Context, key string) {
	if err := s.log.Add(ctx, key, s.clock.Now(), s.config.Decay); err != nil {
		s.logger.Warn("failed to record rate limit attempt",
			slog.String("key", key),
			slog.Any("error", err))
	}
}

// Clear forgets every attempt recorded for key
func (s *RateLimitService) Clear(ctx context.Context, key string) {
	if err := s.log.Clear(ctx, key); err != nil {
		s.logger.Warn("failed to clear rate limit attempts",
			slog.String("key", key),
			slog.Any("error", err))
	}
}
