package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/pkg/logger"
)

// WorkerStore persists support workers and their visits.
type WorkerStore interface {
	List(ctx context.Context, filter models.WorkerFilter) ([]*models.SupportWorker, error)
	GetByID(ctx context.Context, id string) (*models.SupportWorker, error)
	ListVisits(ctx context.Context, workerID string, filter models.VisitFilter) ([]*models.Visit, error)
	CreateVisit(ctx context.Context, visit *models.Visit) (*models.Visit, error)
	CheckInVisit(ctx context.Context, visitID string) error
	CheckOutVisit(ctx context.Context, visitID string) error
}

// WorkerService manages the support worker roster and visit schedule.
type WorkerService struct {
	store  WorkerStore
	audit  *AuditService
	logger *slog.Logger
}

// NewWorkerService creates a new WorkerService
func NewWorkerService(store WorkerStore, audit *AuditService, slogger *slog.Logger) *WorkerService {
	return &WorkerService{
		store:  store,
		audit:  audit,
		logger: slogger,
	}
}

// List returns workers matching the filter with pagination defaults applied.
func (s *WorkerService) List(ctx context.Context, filter models.WorkerFilter) ([]*models.SupportWorker, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	workers, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	return workers, nil
}

// Get returns a single worker by id.
func (s *WorkerService) Get(ctx context.Context, id string) (*models.SupportWorker, error) {
	return s.store.GetByID(ctx, id)
}

// Visits returns a worker's visits. An empty filter window defaults to the
// thirty days around now.
func (s *WorkerService) Visits(ctx context.Context, workerID string, filter models.VisitFilter) ([]*models.Visit, error) {
	if _, err := s.store.GetByID(ctx, workerID); err != nil {
		return nil, err
	}

	now := time.Now()
	if filter.From.IsZero() {
		filter.From = now.AddDate(0, 0, -30)
	}
	if filter.To.IsZero() {
		filter.To = now.AddDate(0, 0, 30)
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	visits, err := s.store.ListVisits(ctx, workerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

// ScheduleVisit creates a visit for a worker.
func (s *WorkerService) ScheduleVisit(ctx context.Context, visit *models.Visit) (*models.Visit, error) {
	if visit.WorkerID == "" || visit.ClientName == "" || visit.ScheduledAt.IsZero() {
		return nil, models.ErrBadRequest
	}

	if _, err := s.store.GetByID(ctx, visit.WorkerID); err != nil {
		return nil, err
	}

	created, err := s.store.CreateVisit(ctx, visit)
	if err != nil {
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}

	s.audit.Record(ctx, logger.AuditEvent{
		Action:       "visit_scheduled",
		ResourceType: models.AuditResourceWorker,
		ResourceID:   visit.WorkerID,
		Outcome:      models.AuditOutcomeSuccess,
		Metadata:     map[string]interface{}{"visit_id": created.ID},
	})

	return created, nil
}

// CheckIn stamps the visit's check-in time.
func (s *WorkerService) CheckIn(ctx context.Context, visitID string) error {
	if err := s.store.CheckInVisit(ctx, visitID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "visit checked in", slog.String("visit_id", visitID))
	return nil
}

// CheckOut stamps the visit's check-out time. Fails for visits never
// checked in.
func (s *WorkerService) CheckOut(ctx context.Context, visitID string) error {
	if err := s.store.CheckOutVisit(ctx, visitID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "visit checked out", slog.String("visit_id", visitID))
	return nil
}
