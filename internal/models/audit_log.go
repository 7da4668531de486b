package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Audit actions emitted by the authentication flow
const (
	AuditActionLoginSuccess     = "login_success"
	AuditActionLoginFailed      = "login_failed"
	AuditActionLoginBlocked     = "login_blocked"
	AuditActionMFARequired      = "mfa_verification_required"
	AuditActionMFANotRequired   = "mfa_not_required"
	AuditActionMFACheckFailed   = "mfa_check_failed"
	AuditActionMFAVerified      = "mfa_verified"
	AuditActionMFAFailed        = "mfa_verification_failed"
	AuditActionMFALocked        = "mfa_locked_out"
	AuditActionSessionFinalized = "session_finalized"
	AuditActionSessionDiscarded = "session_discarded"
)

// Audit outcomes
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
	AuditOutcomeDenied  = "denied"
)

// Resource types
const (
	AuditResourceIdentity = "identity"
	AuditResourceSession  = "session"
	AuditResourceWorker   = "support_worker"
)

// AuditLog is a persisted audit record.
type AuditLog struct {
	ID           string        `json:"id"`
	Action       string        `json:"action"`
	ResourceType string        `json:"resource_type"`
	ResourceID   string        `json:"resource_id"`
	Outcome      string        `json:"outcome"`
	Metadata     AuditMetadata `json:"metadata,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(am)
}
