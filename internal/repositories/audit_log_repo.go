package repositories

import (
	"context"
	"time"

	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/google/uuid"
)

// AuditLogRepository handles database operations for audit logs
type AuditLogRepository struct {
	db *database.DB
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create inserts an audit log entry.
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO audit_logs (id, action, resource_type, resource_id, outcome, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		log.ID, log.Action, log.ResourceType, log.ResourceID,
		log.Outcome, log.Metadata, log.CreatedAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// ListByResource returns audit entries for a resource, newest first.
func (r *AuditLogRepository) ListByResource(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, action, resource_type, resource_id, outcome, metadata, created_at
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Pool.Query(ctx, query, resourceType, resourceID, limit, offset)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		err := rows.Scan(
			&log.ID, &log.Action, &log.ResourceType, &log.ResourceID,
			&log.Outcome, &log.Metadata, &log.CreatedAt,
		)
		if err != nil {
			return nil, database.MapPostgresError(err)
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// CountByAction returns the number of audit entries with an action since
// the given time. Used by the operations dashboard queries.
func (r *AuditLogRepository) CountByAction(ctx context.Context, action string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM audit_logs WHERE action = $1 AND created_at >= $2`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, action, since).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}
