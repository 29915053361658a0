package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/database"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// TwoFactorRepository persists the per-user two-factor record
type TwoFactorRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.TwoFactorAuthRecord, error)
	// Save inserts the record or replaces the existing one for the same user.
	Save(ctx context.Context, rec *models.TwoFactorAuthRecord) error
	// MarkConfirmed enables a pending record. Returns ErrNotFound if nothing is pending.
	MarkConfirmed(ctx context.Context, userID string, at time.Time) error
	SetRecoveryCodesGeneratedAt(ctx context.Context, userID string, at time.Time) error
	Delete(ctx context.Context, userID string) (bool, error)
}

type twoFactorRepoImpl struct {
	pool *pgxpool.Pool
}

// NewTwoFactorRepository creates a Postgres-backed TwoFactorRepository
func NewTwoFactorRepository(db *database.DB) TwoFactorRepository {
	return &twoFactorRepoImpl{pool: db.Pool}
}

const twoFactorColumns = `id, user_id, enabled, method, secret, COALESCE(phone_number, ''),
	confirmed_at, backup_codes_generated_at, created_at, updated_at`

func scanTwoFactorRow(scanner rowScanner) (*models.TwoFactorAuthRecord, error) {
	rec := &models.TwoFactorAuthRecord{}
	var method string
	err := scanner.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Enabled,
		&method,
		&rec.SecretEncrypted,
		&rec.PhoneNumber,
		&rec.ConfirmedAt,
		&rec.BackupCodesGeneratedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	rec.Method = models.Method(method)
	return rec, nil
}

func (r *twoFactorRepoImpl) GetByUserID(ctx context.Context, userID string) (*models.TwoFactorAuthRecord, error) {
	query := `SELECT ` + twoFactorColumns + ` FROM two_factor_auth WHERE user_id = $1`

	rec, err := scanTwoFactorRow(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get two-factor record: %w", err)
	}
	return rec, nil
}

func (r *twoFactorRepoImpl) Save(ctx context.Context, rec *models.TwoFactorAuthRecord) error {
	query := `
		INSERT INTO two_factor_auth
			(user_id, enabled, method, secret, phone_number, confirmed_at, backup_codes_generated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			method = EXCLUDED.method,
			secret = EXCLUDED.secret,
			phone_number = EXCLUDED.phone_number,
			confirmed_at = EXCLUDED.confirmed_at,
			backup_codes_generated_at = EXCLUDED.backup_codes_generated_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		rec.UserID,
		rec.Enabled,
		string(rec.Method),
		rec.SecretEncrypted,
		rec.PhoneNumber,
		rec.ConfirmedAt,
		rec.BackupCodesGeneratedAt,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save two-factor record: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *twoFactorRepoImpl) MarkConfirmed(ctx context.Context, userID string, at time.Time) error {
	query := `
		UPDATE two_factor_auth
		SET enabled = TRUE, confirmed_at = $2, updated_at = $2
		WHERE user_id = $1 AND confirmed_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, userID, at)
	if err != nil {
		return fmt.Errorf("failed to confirm two-factor record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *twoFactorRepoImpl) SetRecoveryCodesGeneratedAt(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE two_factor_auth SET backup_codes_generated_at = $2, updated_at = $2 WHERE user_id = $1`

	tag, err := r.pool.Exec(ctx, query, userID, at)
	if err != nil {
		return fmt.Errorf("failed to update recovery code timestamp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *twoFactorRepoImpl) Delete(ctx context.Context, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM two_factor_auth WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete two-factor record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
