package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdentityRepository handles database operations for identities
type IdentityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository creates a new IdentityRepository
func NewIdentityRepository(db *database.DB) *IdentityRepository {
	return &IdentityRepository{pool: db.Pool}
}

// rowScanner interface for scanning identity rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdentityRow(scanner rowScanner) (*models.Identity, error) {
	var identity models.Identity

	err := scanner.Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &identity.Name,
		&identity.Role, &identity.Status, &identity.MFAEnabled,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &identity, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	query := `
		SELECT id, email, password_hash, name, role, status, mfa_enabled, created_at, updated_at
		FROM identities WHERE id = $1
	`

	return scanIdentityRow(r.pool.QueryRow(ctx, query, id))
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	query := `
		SELECT id, email, password_hash, name, role, status, mfa_enabled, created_at, updated_at
		FROM identities WHERE email = $1
	`

	return scanIdentityRow(r.pool.QueryRow(ctx, query, email))
}

func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	identity.ID = uuid.New().String()

	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	if identity.Role == "" {
		identity.Role = models.RoleStaff
	}
	if identity.Status == "" {
		identity.Status = "active"
	}

	// An empty hash marks a directory-external identity, per the schema
	// default.
	query := `
		INSERT INTO identities (id, email, password_hash, name, role, status, mfa_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, email, password_hash, name, role, status, mfa_enabled, created_at, updated_at
	`

	return scanIdentityRow(r.pool.QueryRow(ctx, query,
		identity.ID, identity.Email, identity.PasswordHash, identity.Name,
		identity.Role, identity.Status, identity.MFAEnabled,
		identity.CreatedAt, identity.UpdatedAt,
	))
}

// SaveProfile upserts the identity snapshot produced by a successful
// login. Fallback-account identities get a row here too, so the rest of
// the application sees one uniform profile store.
func (r *IdentityRepository) SaveProfile(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO identities (id, email, password_hash, name, role, status, mfa_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			mfa_enabled = EXCLUDED.mfa_enabled,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		identity.ID, identity.Email, identity.PasswordHash, identity.Name,
		identity.Role, identity.Status, identity.MFAEnabled,
	)
	if err != nil {
		return fmt.Errorf("failed to save identity profile: %w", database.MapPostgresError(err))
	}

	return nil
}

// SetMFAEnabled flips the MFA enrollment flag for an identity.
func (r *IdentityRepository) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	query := `UPDATE identities SET mfa_enabled = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, enabled, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
