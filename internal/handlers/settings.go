package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/carelinkhq/carelink/internal/auth"
	"github.com/carelinkhq/carelink/internal/models"
	pkghttp "github.com/carelinkhq/carelink/pkg/http"
)

// SettingsServiceInterface defines the interface for per-identity settings
type SettingsServiceInterface interface {
	Get(ctx context.Context, identityID string) (models.SettingsBlob, error)
	Save(ctx context.Context, identityID string, blob models.SettingsBlob) error
}

// SettingsHandler serves the caller's settings blob. Settings are keyed by
// the identity in the access token, never by a client-supplied id.
type SettingsHandler struct {
	service SettingsServiceInterface
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get returns the caller's settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetIdentityFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	blob, err := h.service.Get(r.Context(), claims.IdentityID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, blob)
}

// Put replaces the caller's settings.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetIdentityFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var blob models.SettingsBlob
	if err := json.NewDecoder(r.Body).Decode(&blob); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.Save(r.Context(), claims.IdentityID, blob); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
