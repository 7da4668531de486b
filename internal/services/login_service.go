package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carelinkhq/carelink/internal/auth"
	"github.com/carelinkhq/carelink/internal/config"
	"github.com/carelinkhq/carelink/internal/models"
	pkgauth "github.com/carelinkhq/carelink/pkg/auth"
	"github.com/carelinkhq/carelink/pkg/logger"
)

// LoginDirectory resolves credentials to identities.
type LoginDirectory interface {
	Lookup(ctx context.Context, email string) (*models.Identity, error)
	SaveProfile(ctx context.Context, identity *models.Identity) error
}

// LoginAttemptStore persists password attempt records.
type LoginAttemptStore interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	GetFailedAttemptCount(ctx context.Context, email string, since time.Time) (int, error)
	GetOldestFailureTime(ctx context.Context, email string, since time.Time) (*time.Time, error)
	ClearForEmail(ctx context.Context, email string) error
}

// MFADecider answers whether a just-authenticated identity must verify MFA.
type MFADecider interface {
	Decide(ctx context.Context, identity *models.Identity) models.MFADecision
}

// SessionMaterializer owns the pending/active session lifecycle.
type SessionMaterializer interface {
	CreatePending(ctx context.Context, identity *models.Identity) (*models.Session, error)
	Finalize(ctx context.Context, identityID string) (*models.Session, error)
	Discard(ctx context.Context, identityID, reason string) error
}

// LoginRequest carries one password attempt.
type LoginRequest struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is the outcome of a successful password check. Either the
// token pair is present (no MFA needed) or MFARequired is set and the
// challenge token carries the pending authentication forward.
type LoginResult struct {
	MFARequired bool
	MFAToken    string
	Reason      string
	Identity    *models.Identity
	Tokens      *models.AuthTokens
	Settings    models.SettingsBlob
}

// LoginService is the credential gate. It verifies passwords, enforces the
// per-email attempt block, and hands successful attempts to the MFA policy
// engine. All failure modes return within the same response-time envelope.
type LoginService struct {
	directory LoginDirectory
	attempts  LoginAttemptStore
	settings  SettingsStore
	decider   MFADecider
	sessions  SessionMaterializer
	tokens    *auth.TokenManager
	timing    *auth.TimingDelay
	audit     *AuditService
	policy    *models.AuthPolicy
	lockout   config.LockoutConfig
	logger    *slog.Logger
}

// NewLoginService creates a new LoginService
func NewLoginService(
	directory LoginDirectory,
	attempts LoginAttemptStore,
	settings SettingsStore,
	decider MFADecider,
	sessions SessionMaterializer,
	tokens *auth.TokenManager,
	timing *auth.TimingDelay,
	audit *AuditService,
	policy *models.AuthPolicy,
	lockout config.LockoutConfig,
	slogger *slog.Logger,
) *LoginService {
	return &LoginService{
		directory: directory,
		attempts:  attempts,
		settings:  settings,
		decider:   decider,
		sessions:  sessions,
		tokens:    tokens,
		timing:    timing,
		audit:     audit,
		policy:    policy,
		lockout:   lockout,
		logger:    slogger,
	}
}

// Submit processes one login attempt. Failures are uniform: unknown email,
// wrong password, and disabled account all yield the same error and the
// same response-time envelope.
func (s *LoginService) Submit(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	start := time.Now()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if blocked, retryAfter, err := s.blockStatus(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to check block status: %w", err)
	} else if blocked {
		s.audit.Record(ctx, logger.AuditEvent{
			Action:       models.AuditActionLoginBlocked,
			ResourceType: models.AuditResourceIdentity,
			ResourceID:   email,
			Outcome:      models.AuditOutcomeDenied,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
		})
		s.timing.WaitFrom(start, false)
		return nil, &models.BlockedError{RetryAfter: retryAfter}
	}

	// Fallback accounts are break-glass: stale failures are cleared on
	// every attempt so they can never accumulate into a block.
	if _, ok := s.policy.FallbackAccount(email); ok {
		if err := s.attempts.ClearForEmail(ctx, email); err != nil {
			s.logger.WarnContext(ctx, "failed to clear fallback account attempts",
				slog.String("email", logger.SanitizedEmail(email)),
				slog.Any("error", err),
			)
		}
	}

	identity, err := s.directory.Lookup(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, s.failAttempt(ctx, start, email, req, "unknown_email")
	}
	if err != nil {
		return nil, fmt.Errorf("directory lookup failed: %w", err)
	}

	if identity.Status != "active" {
		return nil, s.failAttempt(ctx, start, email, req, "identity_inactive")
	}

	if !s.verifyPassword(identity, email, req.Password) {
		return nil, s.failAttempt(ctx, start, email, req, "password_mismatch")
	}

	// Credentials accepted. Clear the failure window and snapshot the
	// profile before MFA so a stalled verification still has the record.
	if err := s.attempts.ClearForEmail(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "failed to clear login attempts",
			slog.String("email", logger.SanitizedEmail(email)),
			slog.Any("error", err),
		)
	}
	if err := s.recordAttempt(ctx, email, req, true, nil); err != nil {
		s.logger.WarnContext(ctx, "failed to record login attempt", slog.Any("error", err))
	}
	if err := s.directory.SaveProfile(ctx, identity); err != nil {
		s.logger.WarnContext(ctx, "failed to save identity profile",
			slog.String("identity_id", identity.ID),
			slog.Any("error", err),
		)
	}

	if _, err := s.sessions.CreatePending(ctx, identity); err != nil {
		return nil, err
	}

	decision := s.decider.Decide(ctx, identity)
	if decision.Required {
		challenge, err := s.tokens.GenerateChallengeToken(identity.ID, identity.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to issue challenge token: %w", err)
		}

		s.audit.Record(ctx, logger.AuditEvent{
			Action:       models.AuditActionLoginSuccess,
			ResourceType: models.AuditResourceIdentity,
			ResourceID:   identity.ID,
			Outcome:      models.AuditOutcomeSuccess,
			Reason:       decision.Reason,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
			Metadata:     map[string]interface{}{"mfa_required": true},
		})

		return &LoginResult{
			MFARequired: true,
			MFAToken:    challenge,
			Reason:      decision.Reason,
			Identity:    identity,
		}, nil
	}

	return s.completeLogin(ctx, identity, req, decision.Reason)
}

// completeLogin finalizes the session and issues tokens for logins that do
// not require MFA. The MFA verification path has its own completion.
func (s *LoginService) completeLogin(ctx context.Context, identity *models.Identity, req LoginRequest, reason string) (*LoginResult, error) {
	session, err := s.sessions.Finalize(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(identity.ID, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(identity.ID, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	settings, err := s.settings.Get(ctx, identity.ID)
	if err != nil {
		// Settings are a convenience, not a gate. Login proceeds with
		// defaults when the blob cannot be read.
		s.logger.WarnContext(ctx, "failed to load settings, using defaults",
			slog.String("identity_id", identity.ID),
			slog.Any("error", err),
		)
		settings = models.SettingsBlob{}
	}

	s.audit.Record(ctx, logger.AuditEvent{
		Action:       models.AuditActionLoginSuccess,
		ResourceType: models.AuditResourceIdentity,
		ResourceID:   identity.ID,
		Outcome:      models.AuditOutcomeSuccess,
		Reason:       reason,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		Metadata:     map[string]interface{}{"mfa_required": false, "role": session.Role},
	})

	return &LoginResult{
		Identity: identity,
		Tokens: &models.AuthTokens{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
		Settings: settings,
	}, nil
}

// blockStatus reports whether the email has exhausted its attempt budget
// inside the lookback window, and how long until attempts reopen.
func (s *LoginService) blockStatus(ctx context.Context, email string) (bool, time.Duration, error) {
	since := time.Now().Add(-s.lockout.LookbackWindow)

	count, err := s.attempts.GetFailedAttemptCount(ctx, email, since)
	if err != nil {
		return false, 0, err
	}
	if count < s.lockout.MaxFailedAttempts {
		return false, 0, nil
	}

	oldest, err := s.attempts.GetOldestFailureTime(ctx, email, since)
	if err != nil {
		return false, 0, err
	}
	if oldest == nil {
		return false, 0, nil
	}

	retryAfter := time.Until(oldest.Add(s.lockout.BlockWindow))
	if retryAfter <= 0 {
		return false, 0, nil
	}
	return true, retryAfter, nil
}

// verifyPassword checks the password against the stored bcrypt hash, or,
// for fallback accounts without a hash, the configured fallback secret.
// A policy hash always wins over the fixed secret.
func (s *LoginService) verifyPassword(identity *models.Identity, email, password string) bool {
	if identity.PasswordHash != "" {
		return pkgauth.ComparePassword(identity.PasswordHash, password) == nil
	}

	if acct, ok := s.policy.FallbackAccount(email); ok && acct.FallbackSecret != "" {
		return pkgauth.ConstantTimeEquals(acct.FallbackSecret, password)
	}

	return false
}

// failAttempt records the failure, applies the timing envelope, and
// returns the uniform invalid-credentials error with the remaining budget.
func (s *LoginService) failAttempt(ctx context.Context, start time.Time, email string, req LoginRequest, reason string) error {
	if err := s.recordAttempt(ctx, email, req, false, &reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to record login attempt",
			slog.String("email", logger.SanitizedEmail(email)),
			slog.Any("error", err),
		)
	}

	since := time.Now().Add(-s.lockout.LookbackWindow)
	count, err := s.attempts.GetFailedAttemptCount(ctx, email, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count login attempts", slog.Any("error", err))
		count = s.lockout.MaxFailedAttempts
	}

	// The failure that exhausts the budget is itself reported as blocked,
	// unless the cooldown measured from the oldest failure already elapsed.
	if count >= s.lockout.MaxFailedAttempts {
		retryAfter := s.lockout.BlockWindow
		if oldest, err := s.attempts.GetOldestFailureTime(ctx, email, since); err == nil && oldest != nil {
			retryAfter = time.Until(oldest.Add(s.lockout.BlockWindow))
		}

		if retryAfter > 0 {
			s.audit.Record(ctx, logger.AuditEvent{
				Action:       models.AuditActionLoginBlocked,
				ResourceType: models.AuditResourceIdentity,
				ResourceID:   email,
				Outcome:      models.AuditOutcomeDenied,
				Reason:       reason,
				IPAddress:    req.IPAddress,
				UserAgent:    req.UserAgent,
			})

			s.timing.WaitFrom(start, false)
			return &models.BlockedError{RetryAfter: retryAfter}
		}
	}

	remaining := s.lockout.MaxFailedAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	s.audit.Record(ctx, logger.AuditEvent{
		Action:       models.AuditActionLoginFailed,
		ResourceType: models.AuditResourceIdentity,
		ResourceID:   email,
		Outcome:      models.AuditOutcomeFailure,
		Reason:       reason,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		Metadata:     map[string]interface{}{"attempts_remaining": remaining},
	})

	s.timing.WaitFrom(start, false)
	return &models.InvalidCredentialsError{AttemptsRemaining: remaining}
}

func (s *LoginService) recordAttempt(ctx context.Context, email string, req LoginRequest, success bool, reason *string) error {
	now := time.Now()
	return s.attempts.RecordAttempt(ctx, &models.LoginAttempt{
		Email:         email,
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
		AttemptTime:   now,
		Success:       success,
		FailureReason: reason,
		ExpiresAt:     now.Add(s.lockout.LookbackWindow),
	})
}
