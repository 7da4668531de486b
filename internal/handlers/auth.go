package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/carelinkhq/carelink/internal/auth"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/internal/services"
	pkghttp "github.com/carelinkhq/carelink/pkg/http"
)

// LoginSubmitter defines the interface for the credential gate
type LoginSubmitter interface {
	Submit(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
}

// MFAVerifier defines the interface for MFA verification during login
type MFAVerifier interface {
	Verify(ctx context.Context, identityID, email, code string) (*services.AuthResult, error)
	Cancel(ctx context.Context, identityID string) error
}

// SessionDiscarder ends sessions on logout.
type SessionDiscarder interface {
	Discard(ctx context.Context, identityID, reason string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	login    LoginSubmitter
	mfa      MFAVerifier
	sessions SessionDiscarder
	tokens   *auth.TokenManager
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(login LoginSubmitter, mfa MFAVerifier, sessions SessionDiscarder, tokens *auth.TokenManager, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		login:    login,
		mfa:      mfa,
		sessions: sessions,
		tokens:   tokens,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MFAVerifyRequest represents the request body for MFA verification
type MFAVerifyRequest struct {
	MFAToken string `json:"mfa_token" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

// MFACancelRequest represents the request body for abandoning MFA
type MFACancelRequest struct {
	MFAToken string `json:"mfa_token" validate:"required"`
}

// LoginResponse is returned when login completes without (or after) MFA.
type LoginResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	Identity     IdentityResponse    `json:"identity"`
	Settings     models.SettingsBlob `json:"settings"`
}

// IdentityResponse is the identity summary embedded in auth responses.
type IdentityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login handles the password step of authentication. Responses either
// complete the login or hand back a challenge token for MFA verification.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.login.Submit(r.Context(), services.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	})
	if err != nil {
		writeLoginError(w, err)
		return
	}

	if result.MFARequired {
		pkghttp.WriteJSON(w, http.StatusOK, models.MFARequiredResponse{
			MFARequired: true,
			MFAToken:    result.MFAToken,
			Reason:      result.Reason,
		})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		Identity:     identityResponse(result.Identity),
		Settings:     result.Settings,
	})
}

// MFAVerify handles the TOTP step. The challenge token from the login
// response names the identity; the code proves possession.
func (h *AuthHandler) MFAVerify(w http.ResponseWriter, r *http.Request) {
	var req MFAVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	claims, err := h.tokens.ValidateTokenOfType(req.MFAToken, models.TokenTypeMFAChallenge)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Invalid or expired challenge token")
		return
	}

	result, err := h.mfa.Verify(r.Context(), claims.IdentityID, claims.Email, req.Code)
	if err != nil {
		writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		Identity:     identityResponse(result.Identity),
		Settings:     result.Settings,
	})
}

// MFACancel abandons an in-flight MFA verification and returns the user to
// the login screen.
func (h *AuthHandler) MFACancel(w http.ResponseWriter, r *http.Request) {
	var req MFACancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	claims, err := h.tokens.ValidateTokenOfType(req.MFAToken, models.TokenTypeMFAChallenge)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Invalid or expired challenge token")
		return
	}

	if err := h.mfa.Cancel(r.Context(), claims.IdentityID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Logout ends the caller's session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetIdentityFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.sessions.Discard(r.Context(), claims.IdentityID, "logout"); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func identityResponse(identity *models.Identity) IdentityResponse {
	return IdentityResponse{
		ID:    identity.ID,
		Email: identity.Email,
		Name:  identity.Name,
		Role:  identity.Role,
	}
}

// writeLoginError maps credential gate errors to HTTP responses. Invalid
// credentials stay generic to avoid confirming whether an email exists.
func writeLoginError(w http.ResponseWriter, err error) {
	var blockedErr *models.BlockedError
	var invalidErr *models.InvalidCredentialsError

	switch {
	case errors.As(err, &blockedErr):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(blockedErr.RetryAfter)))
		pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
	case errors.As(err, &invalidErr):
		pkghttp.WriteErrorWithDetails(w, http.StatusUnauthorized, "invalid_credentials",
			"Invalid email or password",
			fmt.Sprintf("%d attempts remaining", invalidErr.AttemptsRemaining))
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid email or password")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// writeMFAError maps MFA verification errors to HTTP responses.
func writeMFAError(w http.ResponseWriter, err error) {
	var lockedErr *models.MFALockedError
	var invalidErr *models.MFAInvalidCodeError

	switch {
	case errors.As(err, &lockedErr):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(lockedErr.RemainingTime)))
		pkghttp.WriteTooManyRequests(w, "Verification locked. Please log in again later.")
	case errors.As(err, &invalidErr):
		pkghttp.WriteErrorWithDetails(w, http.StatusUnauthorized, "invalid_code",
			"Invalid verification code",
			fmt.Sprintf("%d attempts remaining", invalidErr.AttemptsRemaining))
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteConflict(w, "No authenticator enrolled for this account")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
