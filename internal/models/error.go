package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors. ErrInvalidCredentials carries the uniform
	// user-facing message: it never reveals whether the email exists.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMFAInvalidCode     = errors.New("invalid verification code")

	// ErrMFACheckUnavailable is internal only. Callers convert it to a
	// forced MFA requirement, never to a user-visible error.
	ErrMFACheckUnavailable = errors.New("mfa status check unavailable")

	// ErrSessionCorrupt aborts the login attempt and clears partial
	// session state. Surfaced to users as a generic failure.
	ErrSessionCorrupt = errors.New("session state corrupt")
)

// InvalidCredentialsError wraps ErrInvalidCredentials with the number of
// attempts remaining before the account blocks.
type InvalidCredentialsError struct {
	AttemptsRemaining int
}

func (e *InvalidCredentialsError) Error() string {
	return ErrInvalidCredentials.Error()
}

func (e *InvalidCredentialsError) Unwrap() error {
	return ErrInvalidCredentials
}

// BlockedError indicates the email is blocked from further password
// attempts until RetryAfter elapses.
type BlockedError struct {
	RetryAfter time.Duration
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

// MFAInvalidCodeError wraps ErrMFAInvalidCode with the number of attempts
// remaining before MFA verification locks.
type MFAInvalidCodeError struct {
	AttemptsRemaining int
}

func (e *MFAInvalidCodeError) Error() string {
	return ErrMFAInvalidCode.Error()
}

func (e *MFAInvalidCodeError) Unwrap() error {
	return ErrMFAInvalidCode
}

// MFALockedError indicates MFA verification is locked out for the identity.
type MFALockedError struct {
	RemainingTime time.Duration
}

func (e *MFALockedError) Error() string {
	return fmt.Sprintf("mfa verification locked, retry after %s", e.RemainingTime.Round(time.Second))
}
