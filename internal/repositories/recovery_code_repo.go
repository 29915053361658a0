package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/database"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecoveryCodeRepository persists hashed recovery codes
type RecoveryCodeRepository interface {
	// ReplaceForUser atomically removes every code for the user and inserts codes.
	ReplaceForUser(ctx context.Context, userID string, codes []*models.RecoveryCode) error
	ListUnused(ctx context.Context, userID string) ([]*models.RecoveryCode, error)
	// MarkUsed consumes a code only if it is still unused. It reports whether this call won.
	MarkUsed(ctx context.Context, id string, usedAt time.Time, ip, userAgent string) (bool, error)
	CountUnused(ctx context.Context, userID string) (int, error)
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

type recoveryCodeRepoImpl struct {
	db *database.DB
}

// NewRecoveryCodeRepository creates a Postgres-backed RecoveryCodeRepository
func NewRecoveryCodeRepository(db *database.DB) RecoveryCodeRepository {
	return &recoveryCodeRepoImpl{db: db}
}

func scanRecoveryCodeRow(scanner rowScanner) (*models.RecoveryCode, error) {
	code := &models.RecoveryCode{}
	err := scanner.Scan(
		&code.ID,
		&code.UserID,
		&code.CodeHash,
		&code.UsedAt,
		&code.UsedIP,
		&code.UsedUserAgent,
		&code.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return code, nil
}

func (r *recoveryCodeRepoImpl) ReplaceForUser(ctx context.Context, userID string, codes []*models.RecoveryCode) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM two_factor_recovery_codes WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete recovery codes: %w", err)
		}

		batch := &pgx.Batch{}
		for _, code := range codes {
			if code.ID == "" {
				code.ID = uuid.New().String()
			}
			code.UserID = userID
			batch.Queue(
				`INSERT INTO two_factor_recovery_codes (id, user_id, code_hash, created_at) VALUES ($1, $2, $3, $4)`,
				code.ID, userID, code.CodeHash, code.CreatedAt,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range codes {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert recovery code: %w", database.MapPostgresError(err))
			}
		}
		return results.Close()
	})
}

func (r *recoveryCodeRepoImpl) ListUnused(ctx context.Context, userID string) ([]*models.RecoveryCode, error) {
	query := `
		SELECT id, user_id, code_hash, used_at, COALESCE(used_ip, ''), COALESCE(used_user_agent, ''), created_at
		FROM two_factor_recovery_codes
		WHERE user_id = $1 AND used_at IS NULL
		ORDER BY created_at, id
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recovery codes: %w", err)
	}
	defer rows.Close()

	var codes []*models.RecoveryCode
	for rows.Next() {
		code, err := scanRecoveryCodeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recovery code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recovery codes: %w", err)
	}
	return codes, nil
}

func (r *recoveryCodeRepoImpl) MarkUsed(ctx context.Context, id string, usedAt time.Time, ip, userAgent string) (bool, error) {
	query := `
		UPDATE two_factor_recovery_codes
		SET used_at = $2, used_ip = NULLIF($3, ''), used_user_agent = NULLIF($4, '')
		WHERE id = $1 AND used_at IS NULL
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, usedAt, ip, userAgent)
	if err != nil {
		return false, fmt.Errorf("failed to mark recovery code used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *recoveryCodeRepoImpl) CountUnused(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM two_factor_recovery_codes WHERE user_id = $1 AND used_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recovery codes: %w", err)
	}
	return count, nil
}

func (r *recoveryCodeRepoImpl) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM two_factor_recovery_codes WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete recovery codes: %w", err)
	}
	return tag.RowsAffected(), nil
}
