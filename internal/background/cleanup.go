package background

import (
	"context"
	"log/slog"
	"time"
)

// AttemptPurger removes login attempt records past their retention window.
type AttemptPurger interface {
	DeleteExpiredAttempts(ctx context.Context) (int64, error)
}

// LockoutPurger removes MFA lockout rows whose window has elapsed.
type LockoutPurger interface {
	DeleteElapsed(ctx context.Context) (int64, error)
}

// SessionPurger removes pending sessions nobody came back for.
type SessionPurger interface {
	DeleteStalePending(ctx context.Context) (int64, error)
}

// CleanupManager periodically purges expired authentication state: stale
// login attempts, elapsed MFA lockouts, and abandoned pending sessions.
type CleanupManager struct {
	attempts AttemptPurger
	lockouts LockoutPurger
	sessions SessionPurger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attempts AttemptPurger,
	lockouts LockoutPurger,
	sessions SessionPurger,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		attempts: attempts,
		lockouts: lockouts,
		sessions: sessions,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if deleted, err := cm.attempts.DeleteExpiredAttempts(cleanupCtx); err != nil {
		cm.logger.Error("failed to purge login attempts", slog.Any("error", err))
	} else if deleted > 0 {
		cm.logger.Info("purged expired login attempts", slog.Int64("rows_deleted", deleted))
	}

	if deleted, err := cm.lockouts.DeleteElapsed(cleanupCtx); err != nil {
		cm.logger.Error("failed to purge mfa lockouts", slog.Any("error", err))
	} else if deleted > 0 {
		cm.logger.Info("purged elapsed mfa lockouts", slog.Int64("rows_deleted", deleted))
	}

	if deleted, err := cm.sessions.DeleteStalePending(cleanupCtx); err != nil {
		cm.logger.Error("failed to purge stale pending sessions", slog.Any("error", err))
	} else if deleted > 0 {
		cm.logger.Info("purged stale pending sessions", slog.Int64("rows_deleted", deleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
