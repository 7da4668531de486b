package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carelinkhq/carelink/internal/auth"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/internal/services"
	pkghttp "github.com/carelinkhq/carelink/pkg/http"
)

// MFAManager defines the interface for authenticator enrollment
type MFAManager interface {
	Enroll(ctx context.Context, identityID, email string) (*models.MFAEnrollment, error)
	Status(ctx context.Context, identityID string) (*services.EnrollmentStatus, error)
}

// MFAHandler handles authenticator enrollment requests
type MFAHandler struct {
	mfa    MFAManager
	tokens *auth.TokenManager
}

// NewMFAHandler creates a new MFAHandler
func NewMFAHandler(mfa MFAManager, tokens *auth.TokenManager) *MFAHandler {
	return &MFAHandler{
		mfa:    mfa,
		tokens: tokens,
	}
}

// MFAEnrollRequest represents the request body for enrollment. Enrollment
// happens mid-login, authenticated by the challenge token.
type MFAEnrollRequest struct {
	MFAToken string `json:"mfa_token" validate:"required"`
}

// Enroll generates a fresh TOTP secret and returns the provisioning QR
// code. The first verified code completes enrollment.
func (h *MFAHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req MFAEnrollRequest
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

	enrollment, err := h.mfa.Enroll(r.Context(), claims.IdentityID, claims.Email)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "An authenticator is already enrolled for this account")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, enrollment)
}

// Status reports the caller's enrollment and lockout state. Requires an
// active session.
func (h *MFAHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetIdentityFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	status, err := h.mfa.Status(r.Context(), claims.IdentityID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}
