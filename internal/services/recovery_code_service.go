package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/auth"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/repositories"
	pkgauth "github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/auth"
)

// RecoveryCodeConfig controls batch shape
type RecoveryCodeConfig struct {
	Count  int
	Length int
}

// RecoveryCodeService issues and consumes single-use recovery codes
type RecoveryCodeService struct {
	repo   repositories.RecoveryCodeRepository
	hasher *pkgauth.CodeHasher
	random io.Reader
	clock  clock.Clock
	config RecoveryCodeConfig
	logger *slog.Logger
}

// NewRecoveryCodeService creates a new RecoveryCodeService
func NewRecoveryCodeService(
	repo repositories.RecoveryCodeRepository,
	hasher *pkgauth.CodeHasher,
	random io.Reader,
	clk clock.Clock,
	config RecoveryCodeConfig,
	logger *slog.Logger,
) *RecoveryCodeService {
	if config.Count <= 0 {
		config.Count = auth.DefaultRecoveryCodeCount
	}
	if config.Length <= 0 {
		config.Length = auth.DefaultRecoveryCodeLength
	}
	return &RecoveryCodeService{
		repo:   repo,
		hasher: hasher,
		random: random,
		clock:  clk,
		config: config,
		logger: logger,
	}
}

// Length is the number of significant characters in a code, separators excluded
func (s *RecoveryCodeService) Length() int {
	return s.config.Length
}

// Generate replaces the user's batch with count fresh codes and returns them
// formatted for display. The plaintext is not retrievable afterwards.
func (s *RecoveryCodeService) Generate(ctx context.Context, userID string, count int) ([]string, error) {
	if count <= 0 {
		count = s.config.Count
	}

	plain, err := auth.GenerateRecoveryCodes(s.random, count, s.config.Length)
	if err != nil {
		return nil, models.ConfigError("generate recovery codes: %v", err)
	}

	now := s.clock.Now()
	rows := make([]*models.RecoveryCode, 0, len(plain))
	display := make([]string, 0, len(plain))
	for _, code := range plain {
		hash, err := s.hasher.Hash(auth.NormalizeRecoveryCode(code))
		if err != nil {
			return nil, fmt.Errorf("failed to hash recovery code: %w", err)
		}
		rows = append(rows, &models.RecoveryCode{
			UserID:    userID,
			CodeHash:  hash,
			CreatedAt: now,
		})
		display = append(display, code)
	}

	if err := s.repo.ReplaceForUser(ctx, userID, rows); err != nil {
		return nil, fmt.Errorf("failed to store recovery codes: %w", err)
	}

	s.logger.Info("recovery codes generated",
		slog.String("user_id", userID),
		slog.Int("count", len(rows)))
	return display, nil
}

// Regenerate is Generate under its lifecycle name: the old batch, used and
// unused, is gone once it returns.
func (s *RecoveryCodeService) Regenerate(ctx context.Context, userID string, count int) ([]string, error) {
	return s.Generate(ctx, userID, count)
}

// Verify consumes the first unused code matching submitted. It returns false
// when nothing matches or a concurrent request consumed the code first.
func (s *RecoveryCodeService) Verify(ctx context.Context, userID, submitted string, meta models.RequestMeta) (bool, error) {
	normalized := auth.NormalizeRecoveryCode(submitted)
	if len(normalized) != s.config.Length {
		return false, nil
	}

	codes, err := s.repo.ListUnused(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to list recovery codes: %w", err)
	}

	for _, code := range codes {
		ok, err := s.hasher.Compare(code.CodeHash, normalized)
		if err != nil {
			s.logger.Error("corrupt recovery code hash",
				slog.String("user_id", userID),
				slog.String("code_id", code.ID),
				slog.Any("error", err))
			continue
		}
		if !ok {
			continue
		}

		won, err := s.repo.MarkUsed(ctx, code.ID, s.clock.Now(), meta.IPAddress, meta.UserAgent)
		if err != nil {
			return false, fmt.Errorf("failed to mark recovery code used: %w", err)
		}
		if !won {
			s.logger.Info("recovery code already consumed by a concurrent request",
				slog.String("user_id", userID))
		}
		return won, nil
	}

	return false, nil
}

// Remaining counts the user's unused codes
func (s *RecoveryCodeService) Remaining(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.CountUnused(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count recovery codes: %w", err)
	}
	return n, nil
}

// DeleteAll removes every code for the user
func (s *RecoveryCodeService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete recovery codes: %w", err)
	}
	return n, nil
}
