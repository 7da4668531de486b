package models

import "time"

// Session states
const (
	SessionStatusPending = "pending"
	SessionStatusActive  = "active"
)

// Session is the persisted session subject for an identity. A session is
// created in "pending" state when credentials succeed and flipped to
// "active" only by the session materializer, after MFA has been resolved.
type Session struct {
	IdentityID  string
	Email       string
	Name        string
	Role        string
	Status      string
	CreatedAt   time.Time
	FinalizedAt *time.Time
}

// IsPending reports whether the session is awaiting MFA resolution.
func (s *Session) IsPending() bool {
	return s.Status == SessionStatusPending
}

// SettingsBlob is the opaque per-identity settings payload returned by the
// settings sync. A nil blob is a valid answer.
type SettingsBlob map[string]interface{}

// AuthTokens is the token pair issued when a session is finalized.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
