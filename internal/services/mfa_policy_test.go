package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAudit() (*AuditService, *MockAuditLogStore) {
	store := &MockAuditLogStore{}
	return NewAuditService(store, newTestLogger()), store
}

func TestDecideMFA(t *testing.T) {
	tests := []struct {
		name         string
		status       models.MFAStatusResult
		statusErr    error
		wantRequired bool
		wantReason   string
	}{
		{
			name:         "enabled requires verification",
			status:       models.MFAStatusEnabled,
			wantRequired: true,
			wantReason:   models.MFAReasonEnabled,
		},
		{
			name:         "disabled skips verification",
			status:       models.MFAStatusDisabled,
			wantRequired: false,
			wantReason:   models.MFAReasonDisabled,
		},
		{
			name:         "unknown forces verification",
			status:       models.MFAStatusUnknown,
			wantRequired: true,
			wantReason:   models.MFAReasonUnknown,
		},
		{
			name:         "provider error forces verification",
			status:       models.MFAStatusError,
			statusErr:    errors.New("directory timeout"),
			wantRequired: true,
			wantReason:   models.MFAReasonCheckFailed,
		},
		{
			name:         "error with clean status still forces verification",
			status:       models.MFAStatusDisabled,
			statusErr:    errors.New("partial response"),
			wantRequired: true,
			wantReason:   models.MFAReasonCheckFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := DecideMFA(tt.status, tt.statusErr)
			assert.Equal(t, tt.wantRequired, decision.Required)
			assert.Equal(t, tt.wantReason, decision.Reason)
		})
	}
}

func TestMFAPolicyService_Decide_EnabledRequiresMFA(t *testing.T) {
	audit, _ := newTestAudit()
	provider := &MockMFAStatusProvider{
		MFAStatusFunc: func(ctx context.Context, identityID string) (models.MFAStatusResult, error) {
			return models.MFAStatusEnabled, nil
		},
	}
	svc := NewMFAPolicyService(provider, models.NewAuthPolicy(nil, nil), audit, newTestLogger())

	decision := svc.Decide(context.Background(), &models.Identity{ID: "id_1", Role: models.RoleStaff})

	assert.True(t, decision.Required)
	assert.Equal(t, models.MFAReasonEnabled, decision.Reason)
}

func TestMFAPolicyService_Decide_NoElevatedBypass(t *testing.T) {
	// Elevation changes audit tagging only. A super user with MFA enabled
	// still verifies.
	audit, auditStore := newTestAudit()
	provider := &MockMFAStatusProvider{
		MFAStatusFunc: func(ctx context.Context, identityID string) (models.MFAStatusResult, error) {
			return models.MFAStatusEnabled, nil
		},
	}
	policy := models.NewAuthPolicy(nil, []string{"root@carelink.example"})
	svc := NewMFAPolicyService(provider, policy, audit, newTestLogger())

	identity := &models.Identity{
		ID:    "id_root",
		Email: "root@carelink.example",
		Role:  models.RoleSuperUser,
	}
	decision := svc.Decide(context.Background(), identity)

	assert.True(t, decision.Required)

	require.Len(t, auditStore.Created, 1)
	assert.Equal(t, models.AuditActionMFARequired, auditStore.Created[0].Action)
	assert.Equal(t, true, auditStore.Created[0].Metadata["elevated"])
}

func TestMFAPolicyService_Decide_ProviderErrorFailsSecure(t *testing.T) {
	audit, auditStore := newTestAudit()
	provider := &MockMFAStatusProvider{
		MFAStatusFunc: func(ctx context.Context, identityID string) (models.MFAStatusResult, error) {
			return models.MFAStatusError, errors.New("connection refused")
		},
	}
	svc := NewMFAPolicyService(provider, models.NewAuthPolicy(nil, nil), audit, newTestLogger())

	decision := svc.Decide(context.Background(), &models.Identity{ID: "id_1"})

	assert.True(t, decision.Required)
	assert.Equal(t, models.MFAReasonCheckFailed, decision.Reason)

	require.Len(t, auditStore.Created, 1)
	assert.Equal(t, models.AuditActionMFACheckFailed, auditStore.Created[0].Action)
}

func TestMFAPolicyService_Decide_DisabledSkips(t *testing.T) {
	audit, auditStore := newTestAudit()
	provider := &MockMFAStatusProvider{
		MFAStatusFunc: func(ctx context.Context, identityID string) (models.MFAStatusResult, error) {
			return models.MFAStatusDisabled, nil
		},
	}
	svc := NewMFAPolicyService(provider, models.NewAuthPolicy(nil, nil), audit, newTestLogger())

	decision := svc.Decide(context.Background(), &models.Identity{ID: "id_1"})

	assert.False(t, decision.Required)

	require.Len(t, auditStore.Created, 1)
	assert.Equal(t, models.AuditActionMFANotRequired, auditStore.Created[0].Action)
}
