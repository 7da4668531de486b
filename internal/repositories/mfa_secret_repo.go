package repositories

import (
	"context"

	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/models"
)

// MFASecretRepository handles database operations for encrypted TOTP secrets
type MFASecretRepository struct {
	db *database.DB
}

// NewMFASecretRepository creates a new MFASecretRepository
func NewMFASecretRepository(db *database.DB) *MFASecretRepository {
	return &MFASecretRepository{db: db}
}

// GetByIdentity returns the TOTP secret record for an identity.
func (r *MFASecretRepository) GetByIdentity(ctx context.Context, identityID string) (*models.MFASecret, error) {
	query := `
		SELECT identity_id, secret_encrypted, secret_nonce, enrolled_at, verified_at
		FROM mfa_secrets WHERE identity_id = $1
	`

	var secret models.MFASecret
	err := r.db.Pool.QueryRow(ctx, query, identityID).Scan(
		&secret.IdentityID, &secret.SecretEncrypted, &secret.SecretNonce,
		&secret.EnrolledAt, &secret.VerifiedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &secret, nil
}

// Save stores a freshly enrolled secret, replacing any unverified one.
// A verified secret is never silently replaced.
func (r *MFASecretRepository) Save(ctx context.Context, secret *models.MFASecret) error {
	query := `
		INSERT INTO mfa_secrets (identity_id, secret_encrypted, secret_nonce, enrolled_at, verified_at)
		VALUES ($1, $2, $3, NOW(), NULL)
		ON CONFLICT (identity_id) DO UPDATE SET
			secret_encrypted = EXCLUDED.secret_encrypted,
			secret_nonce = EXCLUDED.secret_nonce,
			enrolled_at = NOW(),
			verified_at = NULL
		WHERE mfa_secrets.verified_at IS NULL
	`

	result, err := r.db.Pool.Exec(ctx, query,
		secret.IdentityID, secret.SecretEncrypted, secret.SecretNonce,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrConflict
	}

	return nil
}

// MarkVerified records that the identity proved possession of the secret.
func (r *MFASecretRepository) MarkVerified(ctx context.Context, identityID string) error {
	query := `UPDATE mfa_secrets SET verified_at = NOW() WHERE identity_id = $1`

	result, err := r.db.Pool.Exec(ctx, query, identityID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Delete removes the secret for an identity.
func (r *MFASecretRepository) Delete(ctx context.Context, identityID string) error {
	query := `DELETE FROM mfa_secrets WHERE identity_id = $1`
	_, err := r.db.Pool.Exec(ctx, query, identityID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}
