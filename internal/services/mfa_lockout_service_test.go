package services

import (
	"context"
	"testing"
	"time"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statefulLockoutStore backs MFALockoutService tests with an in-memory map.
func statefulLockoutStore() (*MockMFALockoutStore, map[string]*models.MFALockoutState) {
	states := make(map[string]*models.MFALockoutState)
	store := &MockMFALockoutStore{
		GetFunc: func(ctx context.Context, identityID string) (*models.MFALockoutState, error) {
			state, ok := states[identityID]
			if !ok {
				return nil, models.ErrNotFound
			}
			copied := *state
			return &copied, nil
		},
		UpsertFunc: func(ctx context.Context, state *models.MFALockoutState) error {
			copied := *state
			states[state.IdentityID] = &copied
			return nil
		},
		DeleteFunc: func(ctx context.Context, identityID string) error {
			delete(states, identityID)
			return nil
		},
	}
	return store, states
}

func TestMFALockoutService_Status_NoFailures(t *testing.T) {
	store, _ := statefulLockoutStore()
	svc := NewMFALockoutService(store, 5, 15*time.Minute, newTestLogger())

	status, err := svc.Status(context.Background(), "id_1")
	require.NoError(t, err)

	assert.False(t, status.IsLocked)
	assert.Equal(t, 5, status.AttemptsRemaining)
}

func TestMFALockoutService_RecordFailure_Increments(t *testing.T) {
	store, states := statefulLockoutStore()
	svc := NewMFALockoutService(store, 5, 15*time.Minute, newTestLogger())

	status, err := svc.RecordFailure(context.Background(), "id_1", "nurse@carelink.example")
	require.NoError(t, err)

	assert.False(t, status.IsLocked)
	assert.Equal(t, 4, status.AttemptsRemaining)
	assert.Equal(t, 1, states["id_1"].FailureCount)
}

func TestMFALockoutService_RecordFailure_LocksAtThreshold(t *testing.T) {
	store, states := statefulLockoutStore()
	svc := NewMFALockoutService(store, 3, 15*time.Minute, newTestLogger())

	var status *models.LockoutStatus
	var err error
	for i := 0; i < 3; i++ {
		status, err = svc.RecordFailure(context.Background(), "id_1", "nurse@carelink.example")
		require.NoError(t, err)
	}

	assert.True(t, status.IsLocked)
	assert.Greater(t, status.RemainingTime, 14*time.Minute)
	require.NotNil(t, states["id_1"].LockoutEnds)
}

func TestMFALockoutService_Status_DuringLockout(t *testing.T) {
	store, states := statefulLockoutStore()
	svc := NewMFALockoutService(store, 5, 15*time.Minute, newTestLogger())

	ends := time.Now().Add(10 * time.Minute)
	states["id_1"] = &models.MFALockoutState{
		IdentityID:   "id_1",
		FailureCount: 5,
		LockoutEnds:  &ends,
	}

	status, err := svc.Status(context.Background(), "id_1")
	require.NoError(t, err)

	assert.True(t, status.IsLocked)
	assert.Greater(t, status.RemainingTime, 9*time.Minute)
	assert.LessOrEqual(t, status.RemainingTime, 10*time.Minute)
}

func TestMFALockoutService_Status_ElapsedLockoutClears(t *testing.T) {
	store, states := statefulLockoutStore()
	svc := NewMFALockoutService(store, 5, 15*time.Minute, newTestLogger())

	ends := time.Now().Add(-1 * time.Minute)
	states["id_1"] = &models.MFALockoutState{
		IdentityID:   "id_1",
		FailureCount: 5,
		LockoutEnds:  &ends,
	}

	status, err := svc.Status(context.Background(), "id_1")
	require.NoError(t, err)

	assert.False(t, status.IsLocked)
	assert.Equal(t, 5, status.AttemptsRemaining)
}

func TestMFALockoutService_RecordFailure_RestartsAfterElapsedLockout(t *testing.T) {
	store, states := statefulLockoutStore()
	svc := NewMFALockoutService(store, 5, 15*time.Minute, newTestLogger())

	ends := time.Now().Add(-1 * time.Minute)
	states["id_1"] = &models.MFALockoutState{
		IdentityID:   "id_1",
		FailureCount: 5,
		LockoutEnds:  &ends,
	}

	status, err := svc.RecordFailure(context.Background(), "id_1", "nurse@carelink.example")
	require.NoError(t, err)

	assert.False(t, status.IsLocked)
	assert.Equal(t, 4, status.AttemptsRemaining)
	assert.Equal(t, 1, states["id_1"].FailureCount)
	assert.Nil(t, states["id_1"].LockoutEnds)
}

func TestMFALockoutService_Clear_RemovesState(t *testing.T) {
	store, states := statefulLockoutStore()
	svc := NewMFALockoutService(store, 5, 15*time.Minute, newTestLogger())

	states["id_1"] = &models.MFALockoutState{IdentityID: "id_1", FailureCount: 3}

	err := svc.Clear(context.Background(), "id_1")
	require.NoError(t, err)
	assert.NotContains(t, states, "id_1")

	// Clearing again is a no-op, not an error.
	err = svc.Clear(context.Background(), "id_1")
	assert.NoError(t, err)
}
