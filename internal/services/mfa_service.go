package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carelinkhq/carelink/internal/auth"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/pkg/logger"
)

// MFASecretStore persists encrypted TOTP secrets.
type MFASecretStore interface {
	GetByIdentity(ctx context.Context, identityID string) (*models.MFASecret, error)
	Save(ctx context.Context, secret *models.MFASecret) error
	MarkVerified(ctx context.Context, identityID string) error
}

// AuthResult is returned when MFA verification completes a login.
type AuthResult struct {
	Identity *models.Identity
	Tokens   *models.AuthTokens
	Settings models.SettingsBlob
}

// MFAService handles TOTP enrollment and verification. Verification is the
// second half of the login flow: it consumes the pending session created by
// the credential gate and either finalizes or discards it.
type MFAService struct {
	secrets    MFASecretStore
	identities IdentityStore
	settings   SettingsStore
	totp       *auth.TOTPManager
	tokens     *auth.TokenManager
	lockout    *MFALockoutService
	sessions   *SessionService
	mailer     Mailer
	audit      *AuditService
	logger     *slog.Logger
}

// NewMFAService creates a new MFAService
func NewMFAService(
	secrets MFASecretStore,
	identities IdentityStore,
	settings SettingsStore,
	totp *auth.TOTPManager,
	tokens *auth.TokenManager,
	lockout *MFALockoutService,
	sessions *SessionService,
	mailer Mailer,
	audit *AuditService,
	slogger *slog.Logger,
) *MFAService {
	return &MFAService{
		secrets:    secrets,
		identities: identities,
		settings:   settings,
		totp:       totp,
		tokens:     tokens,
		lockout:    lockout,
		sessions:   sessions,
		mailer:     mailer,
		audit:      audit,
		logger:     slogger,
	}
}

// Verify checks a TOTP code for the identity named in the challenge token.
// The lockout check runs before the code is even looked at, so a locked
// identity learns nothing about code validity.
func (s *MFAService) Verify(ctx context.Context, identityID, email, code string) (*AuthResult, error) {
	status, err := s.lockout.Status(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if status.IsLocked {
		if err := s.sessions.Discard(ctx, identityID, "mfa_locked"); err != nil {
			s.logger.ErrorContext(ctx, "failed to discard pending session",
				slog.String("identity_id", identityID),
				slog.Any("error", err),
			)
		}
		s.audit.Record(ctx, logger.AuditEvent{
			Action:       models.AuditActionMFALocked,
			ResourceType: models.AuditResourceIdentity,
			ResourceID:   identityID,
			Outcome:      models.AuditOutcomeDenied,
		})
		return nil, &models.MFALockedError{RemainingTime: status.RemainingTime}
	}

	secret, err := s.secrets.GetByIdentity(ctx, identityID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("no authenticator enrolled: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mfa secret: %w", err)
	}

	secretBytes, err := s.totp.DecryptSecret(secret.SecretEncrypted, secret.SecretNonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt mfa secret: %w", err)
	}

	valid, err := s.totp.ValidateTOTP(secretBytes, code)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, s.failVerification(ctx, identityID, email)
	}

	if err := s.lockout.Clear(ctx, identityID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear mfa lockout state",
			slog.String("identity_id", identityID),
			slog.Any("error", err),
		)
	}

	// First successful code completes enrollment.
	if !secret.IsVerified() {
		if err := s.secrets.MarkVerified(ctx, identityID); err != nil {
			return nil, fmt.Errorf("failed to mark secret verified: %w", err)
		}
		if err := s.identities.SetMFAEnabled(ctx, identityID, true); err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to flag mfa enabled",
				slog.String("identity_id", identityID),
				slog.Any("error", err),
			)
		}
	}

	return s.completeVerification(ctx, identityID, email)
}

// failVerification records the failed code, locking the identity out when
// the budget is spent. Lockout discards the pending session and alerts the
// account holder.
func (s *MFAService) failVerification(ctx context.Context, identityID, email string) error {
	status, err := s.lockout.RecordFailure(ctx, identityID, email)
	if err != nil {
		return err
	}

	s.audit.Record(ctx, logger.AuditEvent{
		Action:       models.AuditActionMFAFailed,
		ResourceType: models.AuditResourceIdentity,
		ResourceID:   identityID,
		Outcome:      models.AuditOutcomeFailure,
		Metadata:     map[string]interface{}{"attempts_remaining": status.AttemptsRemaining},
	})

	if !status.IsLocked {
		return &models.MFAInvalidCodeError{AttemptsRemaining: status.AttemptsRemaining}
	}

	if err := s.sessions.Discard(ctx, identityID, "mfa_locked"); err != nil {
		s.logger.ErrorContext(ctx, "failed to discard pending session",
			slog.String("identity_id", identityID),
			slog.Any("error", err),
		)
	}

	lockedUntil := time.Now().Add(status.RemainingTime)
	if err := s.mailer.SendMFALockoutAlert(ctx, email, lockedUntil); err != nil {
		s.logger.ErrorContext(ctx, "failed to send lockout alert",
			slog.String("email", logger.SanitizedEmail(email)),
			slog.Any("error", err),
		)
	}

	s.audit.Record(ctx, logger.AuditEvent{
		Action:       models.AuditActionMFALocked,
		ResourceType: models.AuditResourceIdentity,
		ResourceID:   identityID,
		Outcome:      models.AuditOutcomeDenied,
	})

	return &models.MFALockedError{RemainingTime: status.RemainingTime}
}

func (s *MFAService) completeVerification(ctx context.Context, identityID, email string) (*AuthResult, error) {
	session, err := s.sessions.Finalize(ctx, identityID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(identityID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(identityID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	settings, err := s.settings.Get(ctx, identityID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load settings, using defaults",
			slog.String("identity_id", identityID),
			slog.Any("error", err),
		)
		settings = models.SettingsBlob{}
	}

	s.audit.Record(ctx, logger.AuditEvent{
		Action:       models.AuditActionMFAVerified,
		ResourceType: models.AuditResourceIdentity,
		ResourceID:   identityID,
		Outcome:      models.AuditOutcomeSuccess,
	})

	identity := &models.Identity{
		ID:    identityID,
		Email: session.Email,
		Name:  session.Name,
		Role:  session.Role,
	}
	if stored, err := s.identities.GetByID(ctx, identityID); err == nil {
		identity = stored
	}

	return &AuthResult{
		Identity: identity,
		Tokens: &models.AuthTokens{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
		Settings: settings,
	}, nil
}

// Enroll generates a fresh TOTP secret for the identity and returns the
// provisioning QR code. Enrollment completes on the first verified code.
// An identity with a verified secret cannot silently re-enroll.
func (s *MFAService) Enroll(ctx context.Context, identityID, email string) (*models.MFAEnrollment, error) {
	encrypted, nonce, qrDataURL, err := s.totp.GenerateSecretWithQR(email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	err = s.secrets.Save(ctx, &models.MFASecret{
		IdentityID:      identityID,
		SecretEncrypted: encrypted,
		SecretNonce:     nonce,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "mfa enrollment started",
		slog.String("identity_id", identityID))

	return &models.MFAEnrollment{QRCode: qrDataURL}, nil
}

// Cancel abandons an in-flight MFA verification, discarding the pending
// session. The user returns to the login screen.
func (s *MFAService) Cancel(ctx context.Context, identityID string) error {
	return s.sessions.Discard(ctx, identityID, "mfa_cancelled")
}

// EnrollmentStatus reports whether the identity has an enrolled and
// verified authenticator, along with the current lockout state.
type EnrollmentStatus struct {
	Enrolled          bool          `json:"enrolled"`
	Verified          bool          `json:"verified"`
	Locked            bool          `json:"locked"`
	LockRemaining     time.Duration `json:"-"`
	AttemptsRemaining int           `json:"attempts_remaining"`
}

func (s *MFAService) Status(ctx context.Context, identityID string) (*EnrollmentStatus, error) {
	result := &EnrollmentStatus{}

	secret, err := s.secrets.GetByIdentity(ctx, identityID)
	if err == nil {
		result.Enrolled = true
		result.Verified = secret.IsVerified()
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load mfa secret: %w", err)
	}

	lockout, err := s.lockout.Status(ctx, identityID)
	if err != nil {
		return nil, err
	}
	result.Locked = lockout.IsLocked
	result.LockRemaining = lockout.RemainingTime
	result.AttemptsRemaining = lockout.AttemptsRemaining

	return result, nil
}
