package models

import "time"

// LoginAttempt represents a single password attempt for an email address.
// Failed attempts inside the sliding lookback window drive the block
// decision; records are cleared on successful login.
type LoginAttempt struct {
	ID            string
	Email         string
	IPAddress     string
	UserAgent     string
	AttemptTime   time.Time
	Success       bool
	FailureReason *string
	ExpiresAt     time.Time
}

// LockoutStatus reports the MFA lockout state for an identity.
type LockoutStatus struct {
	IsLocked          bool
	RemainingTime     time.Duration
	AttemptsRemaining int
}
