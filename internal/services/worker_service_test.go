package services

import (
	"context"
	"testing"
	"time"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkerService(store *MockWorkerStore) *WorkerService {
	audit, _ := newTestAudit()
	return NewWorkerService(store, audit, newTestLogger())
}

func TestWorkerService_List_AppliesPaginationDefaults(t *testing.T) {
	var gotFilter models.WorkerFilter
	store := &MockWorkerStore{
		ListFunc: func(ctx context.Context, filter models.WorkerFilter) ([]*models.SupportWorker, error) {
			gotFilter = filter
			return []*models.SupportWorker{{ID: "w_1", Name: "Sam Field"}}, nil
		},
	}
	svc := newWorkerService(store)

	workers, err := svc.List(context.Background(), models.WorkerFilter{Limit: 0, Offset: -3})
	require.NoError(t, err)

	assert.Len(t, workers, 1)
	assert.Equal(t, 50, gotFilter.Limit)
	assert.Equal(t, 0, gotFilter.Offset)
}

func TestWorkerService_Visits_UnknownWorker(t *testing.T) {
	svc := newWorkerService(&MockWorkerStore{})

	_, err := svc.Visits(context.Background(), "w_missing", models.VisitFilter{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestWorkerService_Visits_DefaultWindow(t *testing.T) {
	var gotFilter models.VisitFilter
	store := &MockWorkerStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.SupportWorker, error) {
			return &models.SupportWorker{ID: id}, nil
		},
		ListVisitsFunc: func(ctx context.Context, workerID string, filter models.VisitFilter) ([]*models.Visit, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	svc := newWorkerService(store)

	_, err := svc.Visits(context.Background(), "w_1", models.VisitFilter{})
	require.NoError(t, err)

	assert.False(t, gotFilter.From.IsZero())
	assert.False(t, gotFilter.To.IsZero())
	assert.True(t, gotFilter.To.After(gotFilter.From))
}

func TestWorkerService_ScheduleVisit_Validation(t *testing.T) {
	svc := newWorkerService(&MockWorkerStore{})

	_, err := svc.ScheduleVisit(context.Background(), &models.Visit{WorkerID: "w_1"})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestWorkerService_ScheduleVisit(t *testing.T) {
	store := &MockWorkerStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.SupportWorker, error) {
			return &models.SupportWorker{ID: id}, nil
		},
	}
	svc := newWorkerService(store)

	visit, err := svc.ScheduleVisit(context.Background(), &models.Visit{
		WorkerID:    "w_1",
		ClientName:  "A. Client",
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, visit.ID)
}

func TestWorkerService_CheckOut_NotCheckedIn(t *testing.T) {
	store := &MockWorkerStore{
		CheckOutVisitFunc: func(ctx context.Context, visitID string) error {
			return models.ErrNotFound
		},
	}
	svc := newWorkerService(store)

	err := svc.CheckOut(context.Background(), "v_1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
