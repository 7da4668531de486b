package repositories

import (
	"context"

	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/models"
)

// MFALockoutRepository handles database operations for MFA lockout state.
// Each identity has at most one row, keyed by identity ID.
type MFALockoutRepository struct {
	db *database.DB
}

// NewMFALockoutRepository creates a new MFALockoutRepository
func NewMFALockoutRepository(db *database.DB) *MFALockoutRepository {
	return &MFALockoutRepository{db: db}
}

// Get returns the lockout state for an identity, or ErrNotFound when the
// identity has never failed an MFA check.
func (r *MFALockoutRepository) Get(ctx context.Context, identityID string) (*models.MFALockoutState, error) {
	query := `
		SELECT identity_id, email, failure_count, lockout_ends, updated_at
		FROM mfa_lockouts WHERE identity_id = $1
	`

	var state models.MFALockoutState
	err := r.db.Pool.QueryRow(ctx, query, identityID).Scan(
		&state.IdentityID, &state.Email, &state.FailureCount,
		&state.LockoutEnds, &state.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &state, nil
}

// Upsert writes the lockout state, replacing any existing row for the identity.
func (r *MFALockoutRepository) Upsert(ctx context.Context, state *models.MFALockoutState) error {
	query := `
		INSERT INTO mfa_lockouts (identity_id, email, failure_count, lockout_ends, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (identity_id) DO UPDATE SET
			email = EXCLUDED.email,
			failure_count = EXCLUDED.failure_count,
			lockout_ends = EXCLUDED.lockout_ends,
			updated_at = NOW()
	`

	_, err := r.db.Pool.Exec(ctx, query,
		state.IdentityID, state.Email, state.FailureCount, state.LockoutEnds,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// Delete removes the lockout state for an identity. Deleting a missing row
// is not an error so Clear stays idempotent.
func (r *MFALockoutRepository) Delete(ctx context.Context, identityID string) error {
	query := `DELETE FROM mfa_lockouts WHERE identity_id = $1`
	_, err := r.db.Pool.Exec(ctx, query, identityID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// DeleteElapsed removes lockout rows whose lockout window has passed.
// Run periodically by the cleanup worker.
func (r *MFALockoutRepository) DeleteElapsed(ctx context.Context) (int64, error) {
	query := `DELETE FROM mfa_lockouts WHERE lockout_ends IS NOT NULL AND lockout_ends <= NOW()`
	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
