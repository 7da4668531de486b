package models

import "github.com/golang-jwt/jwt/v5"

// Token types
const (
	TokenTypeAccess       = "access"
	TokenTypeRefresh      = "refresh"
	TokenTypeMFAChallenge = "mfa_challenge"
)

// TokenClaims are the JWT claims used for access, refresh, and MFA
// challenge tokens.
type TokenClaims struct {
	Type       string `json:"type"`
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}
