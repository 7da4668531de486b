package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/pkg/logger"
)

// SessionStore persists sessions.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, identityID string) (*models.Session, error)
	GetActive(ctx context.Context, identityID string) (*models.Session, error)
	Delete(ctx context.Context, identityID string) error
}

// SessionService is the only component that moves a session from pending
// to active. Credential success creates pending sessions; nothing else may
// activate them.
type SessionService struct {
	store  SessionStore
	audit  *AuditService
	logger *slog.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(store SessionStore, audit *AuditService, slogger *slog.Logger) *SessionService {
	return &SessionService{
		store:  store,
		audit:  audit,
		logger: slogger,
	}
}

// CreatePending writes a fresh pending session for the identity, replacing
// any session left over from a previous login.
func (s *SessionService) CreatePending(ctx context.Context, identity *models.Identity) (*models.Session, error) {
	session := &models.Session{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Name:       identity.Name,
		Role:       identity.Role,
		Status:     models.SessionStatusPending,
		CreatedAt:  time.Now(),
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create pending session: %w", err)
	}

	return session, nil
}

// Finalize flips a pending session to active. A missing session means the
// login flow was never started or was discarded; any status other than
// pending or active means the stored state is corrupt and is cleared.
func (s *SessionService) Finalize(ctx context.Context, identityID string) (*models.Session, error) {
	session, err := s.store.Get(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	switch session.Status {
	case models.SessionStatusPending:
		// proceed
	case models.SessionStatusActive:
		// Finalizing twice is a flow bug, not corruption. Return the
		// session as-is so retried requests stay idempotent.
		return session, nil
	default:
		if delErr := s.store.Delete(ctx, identityID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to clear corrupt session",
				slog.String("identity_id", identityID),
				slog.Any("error", delErr),
			)
		}
		return nil, models.ErrSessionCorrupt
	}

	now := time.Now()
	session.Status = models.SessionStatusActive
	session.FinalizedAt = &now

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to finalize session: %w", err)
	}

	s.audit.Record(ctx, logger.AuditEvent{
		Action:       models.AuditActionSessionFinalized,
		ResourceType: models.AuditResourceSession,
		ResourceID:   identityID,
		Outcome:      models.AuditOutcomeSuccess,
		Metadata: map[string]interface{}{
			"role": session.Role,
		},
	})

	return session, nil
}

// Discard removes the session for an identity, pending or active. Used on
// MFA cancellation, MFA lockout, and logout.
func (s *SessionService) Discard(ctx context.Context, identityID, reason string) error {
	if err := s.store.Delete(ctx, identityID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to discard session: %w", err)
	}

	s.audit.Record(ctx, logger.AuditEvent{
		Action:       models.AuditActionSessionDiscarded,
		ResourceType: models.AuditResourceSession,
		ResourceID:   identityID,
		Outcome:      models.AuditOutcomeSuccess,
		Reason:       reason,
	})

	return nil
}

// GetActive returns the finalized session for an identity. Pending
// sessions are invisible here; only Finalize makes a session visible.
func (s *SessionService) GetActive(ctx context.Context, identityID string) (*models.Session, error) {
	return s.store.GetActive(ctx, identityID)
}
