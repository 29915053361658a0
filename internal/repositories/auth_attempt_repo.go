package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/database"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthAttemptRepository is the append-only attempt log
type AuthAttemptRepository interface {
	Create(ctx context.Context, attempt *models.AuthAttempt) error
	Stats(ctx context.Context, userID string, since time.Time) (*models.AttemptStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type authAttemptRepoImpl struct {
	pool *pgxpool.Pool
}

// NewAuthAttemptRepository creates a Postgres-backed AuthAttemptRepository
func NewAuthAttemptRepository(db *database.DB) AuthAttemptRepository {
	return &authAttemptRepoImpl{pool: db.Pool}
}

func (r *authAttemptRepoImpl) Create(ctx context.Context, attempt *models.AuthAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO two_factor_auth_attempts
			(id, user_id, ip_address, user_agent, method, type, successful, failure_reason, code_hash, attempted_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, NULLIF($9, ''), $10)
	`

	_, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.UserID,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Method,
		string(attempt.Type),
		attempt.Successful,
		attempt.FailureReason,
		attempt.CodeHash,
		attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record auth attempt: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *authAttemptRepoImpl) Stats(ctx context.Context, userID string, since time.Time) (*models.AttemptStats, error) {
	query := `
		SELECT method,
		       COUNT(*) FILTER (WHERE successful),
		       COUNT(*) FILTER (WHERE NOT successful),
		       MAX(attempted_at)
		FROM two_factor_auth_attempts
		WHERE user_id = $1 AND attempted_at >= $2
		GROUP BY method
	`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt stats: %w", err)
	}
	defer rows.Close()

	stats := &models.AttemptStats{ByMethod: map[string]int{}}
	for rows.Next() {
		var (
			method             string
			successful, failed int
			lastAt             time.Time
		)
		if err := rows.Scan(&method, &successful, &failed, &lastAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt stats: %w", err)
		}
		stats.Successful += successful
		stats.Failed += failed
		stats.ByMethod[method] = successful + failed
		if stats.LastAt == nil || lastAt.After(*stats.LastAt) {
			t := lastAt
			stats.LastAt = &t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempt stats: %w", err)
	}

	stats.Total = stats.Successful + stats.Failed
	return stats, nil
}

func (r *authAttemptRepoImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM two_factor_auth_attempts WHERE attempted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune auth attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
