package repositories

import (
	"context"

	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/models"
)

// SessionRepository handles database operations for sessions. An identity
// has at most one session row at a time, pending or active.
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save writes the session, replacing any existing session for the identity.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (identity_id, email, name, role, status, created_at, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			finalized_at = EXCLUDED.finalized_at
	`

	_, err := r.db.Pool.Exec(ctx, query,
		session.IdentityID, session.Email, session.Name, session.Role,
		session.Status, session.CreatedAt, session.FinalizedAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// Get returns the session for an identity regardless of status.
func (r *SessionRepository) Get(ctx context.Context, identityID string) (*models.Session, error) {
	query := `
		SELECT identity_id, email, name, role, status, created_at, finalized_at
		FROM sessions WHERE identity_id = $1
	`

	return r.scanSession(ctx, query, identityID)
}

// GetActive returns the session for an identity only if it has been
// finalized. Pending sessions do not grant access.
func (r *SessionRepository) GetActive(ctx context.Context, identityID string) (*models.Session, error) {
	query := `
		SELECT identity_id, email, name, role, status, created_at, finalized_at
		FROM sessions WHERE identity_id = $1 AND status = $2
	`

	return r.scanSession(ctx, query, identityID, models.SessionStatusActive)
}

// Delete removes the session for an identity. Used by logout and by the
// MFA lockout path to discard pending sessions.
func (r *SessionRepository) Delete(ctx context.Context, identityID string) error {
	query := `DELETE FROM sessions WHERE identity_id = $1`
	_, err := r.db.Pool.Exec(ctx, query, identityID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// DeleteStalePending removes pending sessions older than the challenge
// window. A pending session the user abandoned should not linger.
func (r *SessionRepository) DeleteStalePending(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE status = $1 AND created_at < NOW() - INTERVAL '1 hour'
	`
	result, err := r.db.Pool.Exec(ctx, query, models.SessionStatusPending)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

func (r *SessionRepository) scanSession(ctx context.Context, query string, args ...interface{}) (*models.Session, error) {
	var session models.Session
	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&session.IdentityID, &session.Email, &session.Name, &session.Role,
		&session.Status, &session.CreatedAt, &session.FinalizedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &session, nil
}
