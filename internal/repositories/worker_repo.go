package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/google/uuid"
)

// WorkerRepository handles database operations for support workers and visits
type WorkerRepository struct {
	db *database.DB
}

// NewWorkerRepository creates a new WorkerRepository
func NewWorkerRepository(db *database.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// List returns support workers matching the filter, ordered by name.
func (r *WorkerRepository) List(ctx context.Context, filter models.WorkerFilter) ([]*models.SupportWorker, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Query+"%")
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Region != "" {
		conditions = append(conditions, fmt.Sprintf("region = $%d", argPos))
		args = append(args, filter.Region)
		argPos++
	}

	query := `
		SELECT id, name, email, phone, status, region, created_at, updated_at
		FROM support_workers
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY name ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var workers []*models.SupportWorker
	for rows.Next() {
		var w models.SupportWorker
		err := rows.Scan(
			&w.ID, &w.Name, &w.Email, &w.Phone, &w.Status,
			&w.Region, &w.CreatedAt, &w.UpdatedAt,
		)
		if err != nil {
			return nil, database.MapPostgresError(err)
		}
		workers = append(workers, &w)
	}

	return workers, rows.Err()
}

// GetByID returns a single support worker.
func (r *WorkerRepository) GetByID(ctx context.Context, id string) (*models.SupportWorker, error) {
	query := `
		SELECT id, name, email, phone, status, region, created_at, updated_at
		FROM support_workers WHERE id = $1
	`

	var w models.SupportWorker
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.Name, &w.Email, &w.Phone, &w.Status,
		&w.Region, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &w, nil
}

// ListVisits returns a worker's visits inside the filter window, most
// recent first.
func (r *WorkerRepository) ListVisits(ctx context.Context, workerID string, filter models.VisitFilter) ([]*models.Visit, error) {
	query := `
		SELECT id, worker_id, client_name, location, scheduled_at, checked_in_at, checked_out_at, notes, created_at
		FROM visits
		WHERE worker_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.db.Pool.Query(ctx, query, workerID, filter.From, filter.To, filter.Limit, filter.Offset)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var visits []*models.Visit
	for rows.Next() {
		var v models.Visit
		err := rows.Scan(
			&v.ID, &v.WorkerID, &v.ClientName, &v.Location, &v.ScheduledAt,
			&v.CheckedInAt, &v.CheckedOutAt, &v.Notes, &v.CreatedAt,
		)
		if err != nil {
			return nil, database.MapPostgresError(err)
		}
		visits = append(visits, &v)
	}

	return visits, rows.Err()
}

// CreateVisit schedules a new visit for a worker.
func (r *WorkerRepository) CreateVisit(ctx context.Context, visit *models.Visit) (*models.Visit, error) {
	visit.ID = uuid.New().String()
	visit.CreatedAt = time.Now()

	query := `
		INSERT INTO visits (id, worker_id, client_name, location, scheduled_at, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		visit.ID, visit.WorkerID, visit.ClientName, visit.Location,
		visit.ScheduledAt, visit.Notes, visit.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return visit, nil
}

// CheckInVisit stamps the check-in time on a visit.
func (r *WorkerRepository) CheckInVisit(ctx context.Context, visitID string) error {
	query := `UPDATE visits SET checked_in_at = NOW() WHERE id = $1 AND checked_in_at IS NULL`
	return r.stampVisit(ctx, query, visitID)
}

// CheckOutVisit stamps the check-out time on a visit that was checked in.
func (r *WorkerRepository) CheckOutVisit(ctx context.Context, visitID string) error {
	query := `
		UPDATE visits SET checked_out_at = NOW()
		WHERE id = $1 AND checked_in_at IS NOT NULL AND checked_out_at IS NULL
	`
	return r.stampVisit(ctx, query, visitID)
}

func (r *WorkerRepository) stampVisit(ctx context.Context, query, visitID string) error {
	result, err := r.db.Pool.Exec(ctx, query, visitID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
