package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionSweeper deletes device sessions past their expiry
type SessionSweeper interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// AttemptPruner deletes audit attempts older than the retention window
type AttemptPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// CleanupObserver records the outcome of a run
type CleanupObserver interface {
	ObserveCleanup(elapsed time.Duration, sessions, attempts int64)
}

// CleanupResult reports what one run removed
type CleanupResult struct {
	SessionsDeleted int64
	AttemptsDeleted int64
}

// CleanupManager periodically removes expired device sessions and old attempt rows
type CleanupManager struct {
	sessions  SessionSweeper
	attempts  AttemptPruner
	observer  CleanupObserver
	retention time.Duration
	logger    *slog.Logger
	interval  time.Duration
	timeout   time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewCleanupManager creates a new cleanup manager. observer may be nil.
func NewCleanupManager(
	sessions SessionSweeper,
	attempts AttemptPruner,
	observer CleanupObserver,
	retention time.Duration,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sessions:  sessions,
		attempts:  attempts,
		observer:  observer,
		retention: retention,
		logger:    logger,
		interval:  interval,
		timeout:   30 * time.Second,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic cleanup task and blocks until Stop or ctx is done
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce sweeps both tables. A failure in one does not skip the other.
func (cm *CleanupManager) RunOnce(ctx context.Context) CleanupResult {
	start := time.Now()
	cm.logger.Info("starting two-factor cleanup")

	cleanupCtx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	var result CleanupResult
	var err error

	result.SessionsDeleted, err = cm.sessions.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired device sessions", slog.Any("error", err))
	}

	if cm.retention > 0 {
		result.AttemptsDeleted, err = cm.attempts.Prune(cleanupCtx, cm.retention)
		if err != nil {
			cm.logger.Error("failed to prune auth attempts", slog.Any("error", err))
		}
	}

	if cm.observer != nil {
		cm.observer.ObserveCleanup(time.Since(start), result.SessionsDeleted, result.AttemptsDeleted)
	}

	if result.SessionsDeleted > 0 || result.AttemptsDeleted > 0 {
		cm.logger.Info("two-factor cleanup completed",
			slog.Int64("sessions_deleted", result.SessionsDeleted),
			slog.Int64("attempts_deleted", result.AttemptsDeleted))
	}
	return result
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
