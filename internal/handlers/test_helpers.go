package handlers

import (
	"context"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/internal/services"
)

// MockLoginSubmitter implements LoginSubmitter for testing
type MockLoginSubmitter struct {
	SubmitFunc func(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
}

func (m *MockLoginSubmitter) Submit(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return nil, models.ErrInvalidCredentials
}

// MockMFAVerifier implements MFAVerifier for testing
type MockMFAVerifier struct {
	VerifyFunc func(ctx context.Context, identityID, email, code string) (*services.AuthResult, error)
	CancelFunc func(ctx context.Context, identityID string) error
}

func (m *MockMFAVerifier) Verify(ctx context.Context, identityID, email, code string) (*services.AuthResult, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, identityID, email, code)
	}
	return nil, models.ErrMFAInvalidCode
}

func (m *MockMFAVerifier) Cancel(ctx context.Context, identityID string) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, identityID)
	}
	return nil
}

// MockSessionDiscarder implements SessionDiscarder for testing
type MockSessionDiscarder struct {
	DiscardFunc func(ctx context.Context, identityID, reason string) error
}

func (m *MockSessionDiscarder) Discard(ctx context.Context, identityID, reason string) error {
	if m.DiscardFunc != nil {
		return m.DiscardFunc(ctx, identityID, reason)
	}
	return nil
}

// MockMFAManager implements MFAManager for testing
type MockMFAManager struct {
	EnrollFunc func(ctx context.Context, identityID, email string) (*models.MFAEnrollment, error)
	StatusFunc func(ctx context.Context, identityID string) (*services.EnrollmentStatus, error)
}

func (m *MockMFAManager) Enroll(ctx context.Context, identityID, email string) (*models.MFAEnrollment, error) {
	if m.EnrollFunc != nil {
		return m.EnrollFunc(ctx, identityID, email)
	}
	return &models.MFAEnrollment{QRCode: "data:image/png;base64,stub"}, nil
}

func (m *MockMFAManager) Status(ctx context.Context, identityID string) (*services.EnrollmentStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, identityID)
	}
	return &services.EnrollmentStatus{}, nil
}
