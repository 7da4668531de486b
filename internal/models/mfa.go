package models

import (
	"time"
)

// MFAStatusResult classifies the answer from the MFA status provider.
type MFAStatusResult int

const (
	// MFAStatusEnabled: provider affirms MFA is enabled.
	MFAStatusEnabled MFAStatusResult = iota
	// MFAStatusDisabled: provider affirms MFA is disabled.
	MFAStatusDisabled
	// MFAStatusUnknown: provider answered but the status is ambiguous.
	MFAStatusUnknown
	// MFAStatusError: provider call failed (error or timeout).
	MFAStatusError
)

// MFADecision is the outcome of the MFA policy evaluation.
type MFADecision struct {
	Required bool
	Reason   string
}

// Decision reasons
const (
	MFAReasonEnabled     = "mfa_enabled_for_identity"
	MFAReasonDisabled    = "mfa_disabled_for_identity"
	MFAReasonUnknown     = "mfa_status_unknown_forced"
	MFAReasonCheckFailed = "mfa_status_check_failed_forced"
)

// MFALockoutState tracks failed MFA verifications per identity.
// Mutated on each failure, reset on success.
type MFALockoutState struct {
	IdentityID   string
	Email        string
	FailureCount int
	LockoutEnds  *time.Time
	UpdatedAt    time.Time
}

// MFASecret holds the encrypted TOTP secret for an identity.
type MFASecret struct {
	IdentityID      string
	SecretEncrypted []byte // AES-256-GCM ciphertext
	SecretNonce     []byte // GCM nonce (12 bytes)
	EnrolledAt      time.Time
	VerifiedAt      *time.Time
}

// IsVerified reports whether enrollment completed with a valid first code.
func (s *MFASecret) IsVerified() bool {
	return s.VerifiedAt != nil
}

// MFAEnrollment is returned when an identity enrolls a new authenticator.
type MFAEnrollment struct {
	QRCode string `json:"qr_code"` // PNG data URL of the provisioning URI
}

// MFARequiredResponse is returned when login must continue with MFA.
type MFARequiredResponse struct {
	MFARequired bool   `json:"mfa_required"`
	MFAToken    string `json:"mfa_token"` // short-lived challenge JWT
	Reason      string `json:"reason,omitempty"`
}
