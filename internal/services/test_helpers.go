package services

import (
	"context"
	"time"

	"github.com/carelinkhq/carelink/internal/models"
)

// MockIdentityStore implements IdentityStore for testing
type MockIdentityStore struct {
	GetByIDFunc       func(ctx context.Context, id string) (*models.Identity, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.Identity, error)
	SaveProfileFunc   func(ctx context.Context, identity *models.Identity) error
	SetMFAEnabledFunc func(ctx context.Context, id string, enabled bool) error
}

func (m *MockIdentityStore) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityStore) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityStore) SaveProfile(ctx context.Context, identity *models.Identity) error {
	if m.SaveProfileFunc != nil {
		return m.SaveProfileFunc(ctx, identity)
	}
	return nil
}

func (m *MockIdentityStore) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	if m.SetMFAEnabledFunc != nil {
		return m.SetMFAEnabledFunc(ctx, id, enabled)
	}
	return nil
}

// MockLoginAttemptStore implements LoginAttemptStore for testing
type MockLoginAttemptStore struct {
	RecordAttemptFunc         func(ctx context.Context, attempt *models.LoginAttempt) error
	GetFailedAttemptCountFunc func(ctx context.Context, email string, since time.Time) (int, error)
	GetOldestFailureTimeFunc  func(ctx context.Context, email string, since time.Time) (*time.Time, error)
	ClearForEmailFunc         func(ctx context.Context, email string) error
}

func (m *MockLoginAttemptStore) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockLoginAttemptStore) GetFailedAttemptCount(ctx context.Context, email string, since time.Time) (int, error) {
	if m.GetFailedAttemptCountFunc != nil {
		return m.GetFailedAttemptCountFunc(ctx, email, since)
	}
	return 0, nil
}

func (m *MockLoginAttemptStore) GetOldestFailureTime(ctx context.Context, email string, since time.Time) (*time.Time, error) {
	if m.GetOldestFailureTimeFunc != nil {
		return m.GetOldestFailureTimeFunc(ctx, email, since)
	}
	return nil, nil
}

func (m *MockLoginAttemptStore) ClearForEmail(ctx context.Context, email string) error {
	if m.ClearForEmailFunc != nil {
		return m.ClearForEmailFunc(ctx, email)
	}
	return nil
}

// MockMFALockoutStore implements MFALockoutStore for testing
type MockMFALockoutStore struct {
	GetFunc    func(ctx context.Context, identityID string) (*models.MFALockoutState, error)
	UpsertFunc func(ctx context.Context, state *models.MFALockoutState) error
	DeleteFunc func(ctx context.Context, identityID string) error
}

func (m *MockMFALockoutStore) Get(ctx context.Context, identityID string) (*models.MFALockoutState, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, identityID)
	}
	return nil, models.ErrNotFound
}

func (m *MockMFALockoutStore) Upsert(ctx context.Context, state *models.MFALockoutState) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, state)
	}
	return nil
}

func (m *MockMFALockoutStore) Delete(ctx context.Context, identityID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, identityID)
	}
	return nil
}

// MockSessionStore implements SessionStore for testing
type MockSessionStore struct {
	SaveFunc      func(ctx context.Context, session *models.Session) error
	GetFunc       func(ctx context.Context, identityID string) (*models.Session, error)
	GetActiveFunc func(ctx context.Context, identityID string) (*models.Session, error)
	DeleteFunc    func(ctx context.Context, identityID string) error
}

func (m *MockSessionStore) Save(ctx context.Context, session *models.Session) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionStore) Get(ctx context.Context, identityID string) (*models.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, identityID)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionStore) GetActive(ctx context.Context, identityID string) (*models.Session, error) {
	if m.GetActiveFunc != nil {
		return m.GetActiveFunc(ctx, identityID)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionStore) Delete(ctx context.Context, identityID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, identityID)
	}
	return nil
}

// MockMFASecretStore implements MFASecretStore for testing
type MockMFASecretStore struct {
	GetByIdentityFunc func(ctx context.Context, identityID string) (*models.MFASecret, error)
	SaveFunc          func(ctx context.Context, secret *models.MFASecret) error
	MarkVerifiedFunc  func(ctx context.Context, identityID string) error
}

func (m *MockMFASecretStore) GetByIdentity(ctx context.Context, identityID string) (*models.MFASecret, error) {
	if m.GetByIdentityFunc != nil {
		return m.GetByIdentityFunc(ctx, identityID)
	}
	return nil, models.ErrNotFound
}

func (m *MockMFASecretStore) Save(ctx context.Context, secret *models.MFASecret) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, secret)
	}
	return nil
}

func (m *MockMFASecretStore) MarkVerified(ctx context.Context, identityID string) error {
	if m.MarkVerifiedFunc != nil {
		return m.MarkVerifiedFunc(ctx, identityID)
	}
	return nil
}

// MockSettingsStore implements SettingsStore for testing
type MockSettingsStore struct {
	GetFunc  func(ctx context.Context, identityID string) (models.SettingsBlob, error)
	SaveFunc func(ctx context.Context, identityID string, blob models.SettingsBlob) error
}

func (m *MockSettingsStore) Get(ctx context.Context, identityID string) (models.SettingsBlob, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, identityID)
	}
	return models.SettingsBlob{}, nil
}

func (m *MockSettingsStore) Save(ctx context.Context, identityID string, blob models.SettingsBlob) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, identityID, blob)
	}
	return nil
}

// MockAuditLogStore implements AuditLogStore for testing
type MockAuditLogStore struct {
	CreateFunc         func(ctx context.Context, log *models.AuditLog) error
	ListByResourceFunc func(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*models.AuditLog, error)

	Created []*models.AuditLog
}

func (m *MockAuditLogStore) Create(ctx context.Context, log *models.AuditLog) error {
	m.Created = append(m.Created, log)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return nil
}

func (m *MockAuditLogStore) ListByResource(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListByResourceFunc != nil {
		return m.ListByResourceFunc(ctx, resourceType, resourceID, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

// MockMFAStatusProvider implements MFAStatusProvider for testing
type MockMFAStatusProvider struct {
	MFAStatusFunc func(ctx context.Context, identityID string) (models.MFAStatusResult, error)
}

func (m *MockMFAStatusProvider) MFAStatus(ctx context.Context, identityID string) (models.MFAStatusResult, error) {
	if m.MFAStatusFunc != nil {
		return m.MFAStatusFunc(ctx, identityID)
	}
	return models.MFAStatusDisabled, nil
}

// MockDirectory implements LoginDirectory for testing
type MockDirectory struct {
	LookupFunc      func(ctx context.Context, email string) (*models.Identity, error)
	SaveProfileFunc func(ctx context.Context, identity *models.Identity) error
}

func (m *MockDirectory) Lookup(ctx context.Context, email string) (*models.Identity, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockDirectory) SaveProfile(ctx context.Context, identity *models.Identity) error {
	if m.SaveProfileFunc != nil {
		return m.SaveProfileFunc(ctx, identity)
	}
	return nil
}

// MockMFADecider implements MFADecider for testing
type MockMFADecider struct {
	DecideFunc func(ctx context.Context, identity *models.Identity) models.MFADecision
}

func (m *MockMFADecider) Decide(ctx context.Context, identity *models.Identity) models.MFADecision {
	if m.DecideFunc != nil {
		return m.DecideFunc(ctx, identity)
	}
	return models.MFADecision{Required: false, Reason: models.MFAReasonDisabled}
}

// MockSessionMaterializer implements SessionMaterializer for testing
type MockSessionMaterializer struct {
	CreatePendingFunc func(ctx context.Context, identity *models.Identity) (*models.Session, error)
	FinalizeFunc      func(ctx context.Context, identityID string) (*models.Session, error)
	DiscardFunc       func(ctx context.Context, identityID, reason string) error
}

func (m *MockSessionMaterializer) CreatePending(ctx context.Context, identity *models.Identity) (*models.Session, error) {
	if m.CreatePendingFunc != nil {
		return m.CreatePendingFunc(ctx, identity)
	}
	return &models.Session{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Status:     models.SessionStatusPending,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockSessionMaterializer) Finalize(ctx context.Context, identityID string) (*models.Session, error) {
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, identityID)
	}
	now := time.Now()
	return &models.Session{
		IdentityID:  identityID,
		Status:      models.SessionStatusActive,
		FinalizedAt: &now,
	}, nil
}

func (m *MockSessionMaterializer) Discard(ctx context.Context, identityID, reason string) error {
	if m.DiscardFunc != nil {
		return m.DiscardFunc(ctx, identityID, reason)
	}
	return nil
}

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendMFALockoutAlertFunc func(ctx context.Context, email string, lockedUntil time.Time) error

	SentTo []string
}

func (m *MockMailer) SendMFALockoutAlert(ctx context.Context, email string, lockedUntil time.Time) error {
	m.SentTo = append(m.SentTo, email)
	if m.SendMFALockoutAlertFunc != nil {
		return m.SendMFALockoutAlertFunc(ctx, email, lockedUntil)
	}
	return nil
}

// MockWorkerStore implements WorkerStore for testing
type MockWorkerStore struct {
	ListFunc          func(ctx context.Context, filter models.WorkerFilter) ([]*models.SupportWorker, error)
	GetByIDFunc       func(ctx context.Context, id string) (*models.SupportWorker, error)
	ListVisitsFunc    func(ctx context.Context, workerID string, filter models.VisitFilter) ([]*models.Visit, error)
	CreateVisitFunc   func(ctx context.Context, visit *models.Visit) (*models.Visit, error)
	CheckInVisitFunc  func(ctx context.Context, visitID string) error
	CheckOutVisitFunc func(ctx context.Context, visitID string) error
}

func (m *MockWorkerStore) List(ctx context.Context, filter models.WorkerFilter) ([]*models.SupportWorker, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.SupportWorker{}, nil
}

func (m *MockWorkerStore) GetByID(ctx context.Context, id string) (*models.SupportWorker, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockWorkerStore) ListVisits(ctx context.Context, workerID string, filter models.VisitFilter) ([]*models.Visit, error) {
	if m.ListVisitsFunc != nil {
		return m.ListVisitsFunc(ctx, workerID, filter)
	}
	return []*models.Visit{}, nil
}

func (m *MockWorkerStore) CreateVisit(ctx context.Context, visit *models.Visit) (*models.Visit, error) {
	if m.CreateVisitFunc != nil {
		return m.CreateVisitFunc(ctx, visit)
	}
	visit.ID = "visit_123"
	return visit, nil
}

func (m *MockWorkerStore) CheckInVisit(ctx context.Context, visitID string) error {
	if m.CheckInVisitFunc != nil {
		return m.CheckInVisitFunc(ctx, visitID)
	}
	return nil
}

func (m *MockWorkerStore) CheckOutVisit(ctx context.Context, visitID string) error {
	if m.CheckOutVisitFunc != nil {
		return m.CheckOutVisitFunc(ctx, visitID)
	}
	return nil
}
