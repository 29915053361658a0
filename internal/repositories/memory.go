package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/google/uuid"
)

// In-memory implementations for tests and single-process deployments.
// Every method copies values in and out so callers never share state with the store.

// ============================================================================
// TwoFactorRepository
// ============================================================================

type memoryTwoFactorRepo struct {
	mu      sync.Mutex
	clock   clock.Clock
	records map[string]models.TwoFactorAuthRecord
}

// NewMemoryTwoFactorRepository creates an in-memory TwoFactorRepository.
// Save timestamps follow clk; nil means the wall clock.
func NewMemoryTwoFactorRepository(clk clock.Clock) TwoFactorRepository {
	if clk == nil {
		clk = clock.Real{}
	}
	return &memoryTwoFactorRepo{clock: clk, records: make(map[string]models.TwoFactorAuthRecord)}
}

func (r *memoryTwoFactorRepo) GetByUserID(_ context.Context, userID string) (*models.TwoFactorAuthRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	rec.SecretEncrypted = append([]byte(nil), rec.SecretEncrypted...)
	return &rec, nil
}

func (r *memoryTwoFactorRepo) Save(_ context.Context, rec *models.TwoFactorAuthRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if existing, ok := r.records[rec.UserID]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.ID = uuid.New().String()
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	stored := *rec
	stored.SecretEncrypted = append([]byte(nil), rec.SecretEncrypted...)
	r.records[rec.UserID] = stored
	return nil
}

func (r *memoryTwoFactorRepo) MarkConfirmed(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok || rec.ConfirmedAt != nil {
		return models.ErrNotFound
	}
	rec.Enabled = true
	rec.ConfirmedAt = &at
	rec.UpdatedAt = at
	r.records[userID] = rec
	return nil
}

func (r *memoryTwoFactorRepo) SetRecoveryCodesGeneratedAt(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return models.ErrNotFound
	}
	rec.BackupCodesGeneratedAt = &at
	rec.UpdatedAt = at
	r.records[userID] = rec
	return nil
}

func (r *memoryTwoFactorRepo) Delete(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.records[userID]
	delete(r.records, userID)
	return ok, nil
}

// ============================================================================
// RecoveryCodeRepository
// ============================================================================

type memoryRecoveryCodeRepo struct {
	mu    sync.Mutex
	codes map[string][]models.RecoveryCode // by user id
}

// NewMemoryRecoveryCodeRepository creates an in-memory RecoveryCodeRepository
func NewMemoryRecoveryCodeRepository() RecoveryCodeRepository {
	return &memoryRecoveryCodeRepo{codes: make(map[string][]models.RecoveryCode)}
}

func (r *memoryRecoveryCodeRepo) ReplaceForUser(_ context.Context, userID string, codes []*models.RecoveryCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := make([]models.RecoveryCode, 0, len(codes))
	for _, code := range codes {
		if code.ID == "" {
			code.ID = uuid.New().String()
		}
		code.UserID = userID
		fresh = append(fresh, *code)
	}
	r.codes[userID] = fresh
	return nil
}

func (r *memoryRecoveryCodeRepo) ListUnused(_ context.Context, userID string) ([]*models.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var unused []*models.RecoveryCode
	for _, code := range r.codes[userID] {
		if code.UsedAt == nil {
			c := code
			unused = append(unused, &c)
		}
	}
	return unused, nil
}

func (r *memoryRecoveryCodeRepo) MarkUsed(_ context.Context, id string, usedAt time.Time, ip, userAgent string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, codes := range r.codes {
		for i := range codes {
			if codes[i].ID != id {
				continue
			}
			if codes[i].UsedAt != nil {
				return false, nil
			}
			t := usedAt
			codes[i].UsedAt = &t
			codes[i].UsedIP = ip
			codes[i].UsedUserAgent = userAgent
			r.codes[userID] = codes
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRecoveryCodeRepo) CountUnused(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, code := range r.codes[userID] {
		if code.UsedAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *memoryRecoveryCodeRepo) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.codes[userID]))
	delete(r.codes, userID)
	return n, nil
}

// ============================================================================
// DeviceSessionRepository
// ============================================================================

type memoryDeviceSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]models.DeviceSession // by id
}

// NewMemoryDeviceSessionRepository creates an in-memory DeviceSessionRepository
func NewMemoryDeviceSessionRepository() DeviceSessionRepository {
	return &memoryDeviceSessionRepo{sessions: make(map[string]models.DeviceSession)}
}

func (r *memoryDeviceSessionRepo) Create(_ context.Context, session *models.DeviceSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.UserID == session.UserID && s.Token == session.Token {
			return models.ErrConflict
		}
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *memoryDeviceSessionRepo) FindActive(_ context.Context, userID, token string, now time.Time) (*models.DeviceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.UserID == userID && s.Token == token && s.IsActive(now) {
			found := s
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memoryDeviceSessionRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	s.LastUsedAt = &at
	r.sessions[id] = s
	return nil
}

func (r *memoryDeviceSessionRepo) ListActive(_ context.Context, userID string, now time.Time) ([]*models.DeviceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var active []*models.DeviceSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive(now) {
			found := s
			active = append(active, &found)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return lastSeen(active[i]).After(lastSeen(active[j]))
	})
	return active, nil
}

func lastSeen(s *models.DeviceSession) time.Time {
	if s.LastUsedAt != nil {
		return *s.LastUsedAt
	}
	return s.CreatedAt
}

func (r *memoryDeviceSessionRepo) CountActive(ctx context.Context, userID string, now time.Time) (int, error) {
	active, err := r.ListActive(ctx, userID, now)
	return len(active), err
}

func (r *memoryDeviceSessionRepo) DeleteByToken(_ context.Context, userID, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.UserID == userID && s.Token == token {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryDeviceSessionRepo) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryDeviceSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if !s.IsActive(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// ============================================================================
// AuthAttemptRepository
// ============================================================================

type memoryAuthAttemptRepo struct {
	mu       sync.Mutex
	attempts []models.AuthAttempt
}

// NewMemoryAuthAttemptRepository creates an in-memory AuthAttemptRepository
func NewMemoryAuthAttemptRepository() AuthAttemptRepository {
	return &memoryAuthAttemptRepo{}
}

func (r *memoryAuthAttemptRepo) Create(_ context.Context, attempt *models.AuthAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *memoryAuthAttemptRepo) Stats(_ context.Context, userID string, since time.Time) (*models.AttemptStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &models.AttemptStats{ByMethod: map[string]int{}}
	for _, a := range r.attempts {
		if a.UserID == nil || *a.UserID != userID || a.AttemptedAt.Before(since) {
			continue
		}
		stats.Total++
		if a.Successful {
			stats.Successful++
		} else {
			stats.Failed++
		}
		stats.ByMethod[a.Method]++
		if stats.LastAt == nil || a.AttemptedAt.After(*stats.LastAt) {
			t := a.AttemptedAt
			stats.LastAt = &t
		}
	}
	return stats, nil
}

func (r *memoryAuthAttemptRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.attempts[:0]
	var n int64
	for _, a := range r.attempts {
		if a.AttemptedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return n, nil
}
