package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/carelinkhq/carelink/internal/models"
)

// IdentityStore persists identity records.
type IdentityStore interface {
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	SaveProfile(ctx context.Context, identity *models.Identity) error
	SetMFAEnabled(ctx context.Context, id string, enabled bool) error
}

// DirectoryService resolves emails to identities and answers MFA status
// queries. Fallback accounts from the auth policy are resolved locally
// and never hit the identity store for credential lookup.
type DirectoryService struct {
	identities IdentityStore
	policy     *models.AuthPolicy
	logger     *slog.Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(identities IdentityStore, policy *models.AuthPolicy, slogger *slog.Logger) *DirectoryService {
	return &DirectoryService{
		identities: identities,
		policy:     policy,
		logger:     slogger,
	}
}

// Lookup resolves an email to an identity. Policy fallback accounts take
// precedence over directory rows with the same email.
func (s *DirectoryService) Lookup(ctx context.Context, email string) (*models.Identity, error) {
	if acct, ok := s.policy.FallbackAccount(email); ok {
		return s.fallbackIdentity(ctx, acct)
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return identity, nil
}

// fallbackIdentity materializes an identity for a policy fallback account.
// A stored profile row supplies the id and persisted fields; the policy
// supplies credentials. MFA is always on for fallback accounts.
func (s *DirectoryService) fallbackIdentity(ctx context.Context, acct *models.FallbackAccount) (*models.Identity, error) {
	identity := &models.Identity{
		ID:         "fallback:" + acct.Email,
		Email:      acct.Email,
		Name:       acct.Name,
		Role:       acct.Role,
		MFAEnabled: true,
		Status:     "active",
	}

	stored, err := s.identities.GetByEmail(ctx, acct.Email)
	if err == nil {
		identity.ID = stored.ID
		identity.MFAEnabled = stored.MFAEnabled || identity.MFAEnabled
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.WarnContext(ctx, "fallback profile lookup failed, using policy values",
			slog.String("email", acct.Email),
			slog.Any("error", err),
		)
	}

	// A bcrypt hash in the policy wins; the fixed fallback secret is
	// honored only when no hash is configured.
	identity.PasswordHash = acct.PasswordHash

	return identity, nil
}

// SaveProfile persists the identity snapshot after a successful login.
func (s *DirectoryService) SaveProfile(ctx context.Context, identity *models.Identity) error {
	if err := s.identities.SaveProfile(ctx, identity); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// MFAStatus reports whether MFA is enabled for an identity. A missing row
// is Unknown, not Disabled: absence of evidence must not skip MFA. Store
// failures return Error with the underlying cause.
func (s *DirectoryService) MFAStatus(ctx context.Context, identityID string) (models.MFAStatusResult, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if errors.Is(err, models.ErrNotFound) {
		return models.MFAStatusUnknown, nil
	}
	if err != nil {
		return models.MFAStatusError, fmt.Errorf("%w: %v", models.ErrMFACheckUnavailable, err)
	}

	if identity.MFAEnabled {
		return models.MFAStatusEnabled, nil
	}
	return models.MFAStatusDisabled, nil
}
