package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carelinkhq/carelink/internal/models"
)

// MFALockoutStore persists per-identity MFA failure state.
type MFALockoutStore interface {
	Get(ctx context.Context, identityID string) (*models.MFALockoutState, error)
	Upsert(ctx context.Context, state *models.MFALockoutState) error
	Delete(ctx context.Context, identityID string) error
}

// MFALockoutService tracks failed MFA verifications per identity. Its
// counter and clock are independent of the password-attempt block: a
// password lockout never touches this state and vice versa.
type MFALockoutService struct {
	store           MFALockoutStore
	maxAttempts     int
	lockoutDuration time.Duration
	logger          *slog.Logger
}

// NewMFALockoutService creates a new MFALockoutService
func NewMFALockoutService(store MFALockoutStore, maxAttempts int, lockoutDuration time.Duration, slogger *slog.Logger) *MFALockoutService {
	return &MFALockoutService{
		store:           store,
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
		logger:          slogger,
	}
}

// Status reports the current lockout state. An identity with no recorded
// failures, or whose lockout window has elapsed, is not locked and has the
// full attempt budget. Elapsed state is reset lazily on the next failure.
func (s *MFALockoutService) Status(ctx context.Context, identityID string) (*models.LockoutStatus, error) {
	state, err := s.store.Get(ctx, identityID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.LockoutStatus{AttemptsRemaining: s.maxAttempts}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mfa lockout state: %w", err)
	}

	if state.LockoutEnds != nil {
		remaining := time.Until(*state.LockoutEnds)
		if remaining > 0 {
			return &models.LockoutStatus{
				IsLocked:      true,
				RemainingTime: remaining,
			}, nil
		}
		// Lockout elapsed. Report a clean slate; the row is reset when
		// the next failure is recorded.
		return &models.LockoutStatus{AttemptsRemaining: s.maxAttempts}, nil
	}

	remaining := s.maxAttempts - state.FailureCount
	if remaining < 0 {
		remaining = 0
	}
	return &models.LockoutStatus{AttemptsRemaining: remaining}, nil
}

// RecordFailure increments the failure counter and starts the lockout
// window when the threshold is reached. A failure after an elapsed lockout
// restarts the count at one.
func (s *MFALockoutService) RecordFailure(ctx context.Context, identityID, email string) (*models.LockoutStatus, error) {
	state, err := s.store.Get(ctx, identityID)
	if errors.Is(err, models.ErrNotFound) {
		state = &models.MFALockoutState{IdentityID: identityID, Email: email}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get mfa lockout state: %w", err)
	}

	if state.LockoutEnds != nil && time.Now().After(*state.LockoutEnds) {
		state.FailureCount = 0
		state.LockoutEnds = nil
	}

	state.Email = email
	state.FailureCount++

	if state.FailureCount >= s.maxAttempts {
		ends := time.Now().Add(s.lockoutDuration)
		state.LockoutEnds = &ends
	}

	if err := s.store.Upsert(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to record mfa failure: %w", err)
	}

	if state.LockoutEnds != nil {
		s.logger.WarnContext(ctx, "mfa verification locked",
			slog.String("identity_id", identityID),
			slog.Int("failure_count", state.FailureCount),
		)
		return &models.LockoutStatus{
			IsLocked:      true,
			RemainingTime: time.Until(*state.LockoutEnds),
		}, nil
	}

	return &models.LockoutStatus{
		AttemptsRemaining: s.maxAttempts - state.FailureCount,
	}, nil
}

// Clear removes all failure state for an identity. Called on successful
// MFA verification. Idempotent.
func (s *MFALockoutService) Clear(ctx context.Context, identityID string) error {
	if err := s.store.Delete(ctx, identityID); err != nil {
		return fmt.Errorf("failed to clear mfa lockout state: %w", err)
	}
	return nil
}
