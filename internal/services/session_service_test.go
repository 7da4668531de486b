package services

import (
	"context"
	"testing"
	"time"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_CreatePending(t *testing.T) {
	var saved *models.Session
	store := &MockSessionStore{
		SaveFunc: func(ctx context.Context, session *models.Session) error {
			saved = session
			return nil
		},
	}
	audit, _ := newTestAudit()
	svc := NewSessionService(store, audit, newTestLogger())

	identity := &models.Identity{
		ID: "id_1", Email: "nurse@carelink.example",
		Name: "Test Nurse", Role: models.RoleStaff,
	}
	session, err := svc.CreatePending(context.Background(), identity)
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusPending, session.Status)
	assert.True(t, session.IsPending())
	assert.Nil(t, session.FinalizedAt)
	require.NotNil(t, saved)
	assert.Equal(t, "id_1", saved.IdentityID)
}

func TestSessionService_Finalize_PendingBecomesActive(t *testing.T) {
	pending := &models.Session{
		IdentityID: "id_1",
		Email:      "nurse@carelink.example",
		Role:       models.RoleStaff,
		Status:     models.SessionStatusPending,
		CreatedAt:  time.Now(),
	}

	var saved *models.Session
	store := &MockSessionStore{
		GetFunc: func(ctx context.Context, identityID string) (*models.Session, error) {
			return pending, nil
		},
		SaveFunc: func(ctx context.Context, session *models.Session) error {
			saved = session
			return nil
		},
	}
	audit, auditStore := newTestAudit()
	svc := NewSessionService(store, audit, newTestLogger())

	session, err := svc.Finalize(context.Background(), "id_1")
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusActive, session.Status)
	require.NotNil(t, session.FinalizedAt)
	require.NotNil(t, saved)
	assert.Equal(t, models.SessionStatusActive, saved.Status)

	require.Len(t, auditStore.Created, 1)
	assert.Equal(t, models.AuditActionSessionFinalized, auditStore.Created[0].Action)
}

func TestSessionService_Finalize_AlreadyActiveIsIdempotent(t *testing.T) {
	now := time.Now()
	active := &models.Session{
		IdentityID:  "id_1",
		Status:      models.SessionStatusActive,
		FinalizedAt: &now,
	}

	saves := 0
	store := &MockSessionStore{
		GetFunc: func(ctx context.Context, identityID string) (*models.Session, error) {
			return active, nil
		},
		SaveFunc: func(ctx context.Context, session *models.Session) error {
			saves++
			return nil
		},
	}
	audit, _ := newTestAudit()
	svc := NewSessionService(store, audit, newTestLogger())

	session, err := svc.Finalize(context.Background(), "id_1")
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.Equal(t, 0, saves)
}

func TestSessionService_Finalize_CorruptStateCleared(t *testing.T) {
	corrupt := &models.Session{
		IdentityID: "id_1",
		Status:     "garbled",
	}

	deleted := false
	store := &MockSessionStore{
		GetFunc: func(ctx context.Context, identityID string) (*models.Session, error) {
			return corrupt, nil
		},
		DeleteFunc: func(ctx context.Context, identityID string) error {
			deleted = true
			return nil
		},
	}
	audit, _ := newTestAudit()
	svc := NewSessionService(store, audit, newTestLogger())

	_, err := svc.Finalize(context.Background(), "id_1")

	assert.ErrorIs(t, err, models.ErrSessionCorrupt)
	assert.True(t, deleted, "corrupt session state must be cleared")
}

func TestSessionService_Finalize_MissingSession(t *testing.T) {
	store := &MockSessionStore{}
	audit, _ := newTestAudit()
	svc := NewSessionService(store, audit, newTestLogger())

	_, err := svc.Finalize(context.Background(), "id_1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSessionService_Discard(t *testing.T) {
	var deletedID string
	store := &MockSessionStore{
		DeleteFunc: func(ctx context.Context, identityID string) error {
			deletedID = identityID
			return nil
		},
	}
	audit, auditStore := newTestAudit()
	svc := NewSessionService(store, audit, newTestLogger())

	err := svc.Discard(context.Background(), "id_1", "mfa_cancelled")
	require.NoError(t, err)

	assert.Equal(t, "id_1", deletedID)
	require.Len(t, auditStore.Created, 1)
	assert.Equal(t, models.AuditActionSessionDiscarded, auditStore.Created[0].Action)
	assert.Equal(t, "mfa_cancelled", auditStore.Created[0].Metadata["reason"])
}

func TestSessionService_Discard_MissingSessionIsNoop(t *testing.T) {
	store := &MockSessionStore{
		DeleteFunc: func(ctx context.Context, identityID string) error {
			return models.ErrNotFound
		},
	}
	audit, _ := newTestAudit()
	svc := NewSessionService(store, audit, newTestLogger())

	err := svc.Discard(context.Background(), "id_1", "logout")
	assert.NoError(t, err)
}

func TestSessionService_GetActive_PendingInvisible(t *testing.T) {
	store := &MockSessionStore{
		GetActiveFunc: func(ctx context.Context, identityID string) (*models.Session, error) {
			// Store-level filter: pending rows are never returned here.
			return nil, models.ErrNotFound
		},
	}
	audit, _ := newTestAudit()
	svc := NewSessionService(store, audit, newTestLogger())

	_, err := svc.GetActive(context.Background(), "id_1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
