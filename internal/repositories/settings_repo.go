package repositories

import (
	"context"
	"errors"

	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/jackc/pgx/v5"
)

// SettingsRepository stores per-identity application settings as a JSON
// blob keyed by identity ID.
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the settings blob for an identity. A missing row yields an
// empty blob rather than an error, so first logins start from defaults.
func (r *SettingsRepository) Get(ctx context.Context, identityID string) (models.SettingsBlob, error) {
	query := `SELECT settings FROM identity_settings WHERE identity_id = $1`

	var blob models.SettingsBlob
	err := r.db.Pool.QueryRow(ctx, query, identityID).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SettingsBlob{}, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return blob, nil
}

// Save upserts the settings blob for an identity.
func (r *SettingsRepository) Save(ctx context.Context, identityID string, blob models.SettingsBlob) error {
	query := `
		INSERT INTO identity_settings (identity_id, settings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (identity_id) DO UPDATE SET
			settings = EXCLUDED.settings,
			updated_at = NOW()
	`

	_, err := r.db.Pool.Exec(ctx, query, identityID, blob)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}
