package services

import (
	"context"
	"log/slog"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/pkg/logger"
)

// MFAStatusProvider answers whether MFA is enabled for an identity. The
// answer may be Enabled, Disabled, Unknown, or Error; only an affirmative
// Disabled ever skips verification.
type MFAStatusProvider interface {
	MFAStatus(ctx context.Context, identityID string) (models.MFAStatusResult, error)
}

// DecideMFA maps a provider answer to an MFA decision. The mapping is
// fail-secure: anything other than an affirmative "disabled" requires
// verification. Pure function, no I/O.
func DecideMFA(status models.MFAStatusResult, statusErr error) models.MFADecision {
	if statusErr != nil {
		return models.MFADecision{Required: true, Reason: models.MFAReasonCheckFailed}
	}

	switch status {
	case models.MFAStatusEnabled:
		return models.MFADecision{Required: true, Reason: models.MFAReasonEnabled}
	case models.MFAStatusDisabled:
		return models.MFADecision{Required: false, Reason: models.MFAReasonDisabled}
	case models.MFAStatusUnknown:
		return models.MFADecision{Required: true, Reason: models.MFAReasonUnknown}
	default:
		return models.MFADecision{Required: true, Reason: models.MFAReasonCheckFailed}
	}
}

// MFAPolicyService evaluates whether a just-authenticated identity must
// complete MFA verification before its session is finalized.
type MFAPolicyService struct {
	provider MFAStatusProvider
	policy   *models.AuthPolicy
	audit    *AuditService
	logger   *slog.Logger
}

// NewMFAPolicyService creates a new MFAPolicyService
func NewMFAPolicyService(provider MFAStatusProvider, policy *models.AuthPolicy, audit *AuditService, slogger *slog.Logger) *MFAPolicyService {
	return &MFAPolicyService{
		provider: provider,
		policy:   policy,
		audit:    audit,
		logger:   slogger,
	}
}

// Decide queries the status provider and applies the fail-secure mapping.
// Elevated identities get no bypass; elevation only tags the audit record
// so reviewers can spot privileged logins.
func (s *MFAPolicyService) Decide(ctx context.Context, identity *models.Identity) models.MFADecision {
	status, err := s.provider.MFAStatus(ctx, identity.ID)
	decision := DecideMFA(status, err)

	if err != nil {
		s.logger.WarnContext(ctx, "mfa status check failed, forcing verification",
			slog.String("identity_id", identity.ID),
			slog.Any("error", err),
		)
	}

	elevated := s.policy.IsElevated(identity.ID) || s.policy.IsElevated(identity.Email)

	action := models.AuditActionMFANotRequired
	if decision.Required {
		action = models.AuditActionMFARequired
	}
	if decision.Reason == models.MFAReasonCheckFailed {
		action = models.AuditActionMFACheckFailed
	}

	s.audit.Record(ctx, logger.AuditEvent{
		Action:       action,
		ResourceType: models.AuditResourceIdentity,
		ResourceID:   identity.ID,
		Outcome:      models.AuditOutcomeSuccess,
		Reason:       decision.Reason,
		Metadata: map[string]interface{}{
			"role":     identity.Role,
			"elevated": elevated,
		},
	})

	return decision
}
