package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/database"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeviceSessionRepository persists remembered devices
type DeviceSessionRepository interface {
	Create(ctx context.Context, session *models.DeviceSession) error
	// FindActive returns the session matching exactly (userID, token) with expires_at > now.
	FindActive(ctx context.Context, userID, token string, now time.Time) (*models.DeviceSession, error)
	Touch(ctx context.Context, id string, at time.Time) error
	ListActive(ctx context.Context, userID string, now time.Time) ([]*models.DeviceSession, error)
	CountActive(ctx context.Context, userID string, now time.Time) (int, error)
	DeleteByToken(ctx context.Context, userID, token string) (int64, error)
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type deviceSessionRepoImpl struct {
	pool *pgxpool.Pool
}

// NewDeviceSessionRepository creates a Postgres-backed DeviceSessionRepository
func NewDeviceSessionRepository(db *database.DB) DeviceSessionRepository {
	return &deviceSessionRepoImpl{pool: db.Pool}
}

const deviceSessionColumns = `id, user_id, token, device_fingerprint, COALESCE(ip_address, ''),
	COALESCE(user_agent, ''), expires_at, last_used_at, created_at`

func scanDeviceSessionRow(scanner rowScanner) (*models.DeviceSession, error) {
	s := &models.DeviceSession{}
	err := scanner.Scan(
		&s.ID,
		&s.UserID,
		&s.Token,
		&s.DeviceFingerprint,
		&s.IPAddress,
		&s.UserAgent,
		&s.ExpiresAt,
		&s.LastUsedAt,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return s, nil
}

func (r *deviceSessionRepoImpl) Create(ctx context.Context, session *models.DeviceSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	query := `
		INSERT INTO two_factor_device_sessions
			(id, user_id, token, device_fingerprint, ip_address, user_agent, expires_at, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.DeviceFingerprint,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
		session.LastUsedAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create device session: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *deviceSessionRepoImpl) FindActive(ctx context.Context, userID, token string, now time.Time) (*models.DeviceSession, error) {
	query := `SELECT ` + deviceSessionColumns + `
		FROM two_factor_device_sessions
		WHERE user_id = $1 AND token = $2 AND expires_at > $3`

	s, err := scanDeviceSessionRow(r.pool.QueryRow(ctx, query, userID, token, now))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find device session: %w", err)
	}
	return s, nil
}

func (r *deviceSessionRepoImpl) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE two_factor_device_sessions SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch device session: %w", err)
	}
	return nil
}

func (r *deviceSessionRepoImpl) ListActive(ctx context.Context, userID string, now time.Time) ([]*models.DeviceSession, error) {
	query := `SELECT ` + deviceSessionColumns + `
		FROM two_factor_device_sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY COALESCE(last_used_at, created_at) DESC`

	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list device sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.DeviceSession
	for rows.Next() {
		s, err := scanDeviceSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device sessions: %w", err)
	}
	return sessions, nil
}

func (r *deviceSessionRepoImpl) CountActive(ctx context.Context, userID string, now time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM two_factor_device_sessions WHERE user_id = $1 AND expires_at > $2`,
		userID, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count device sessions: %w", err)
	}
	return count, nil
}

func (r *deviceSessionRepoImpl) DeleteByToken(ctx context.Context, userID, token string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM two_factor_device_sessions WHERE user_id = $1 AND token = $2`,
		userID, token,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete device session: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *deviceSessionRepoImpl) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM two_factor_device_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete device sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *deviceSessionRepoImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM two_factor_device_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired device sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
