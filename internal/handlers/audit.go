package handlers

import (
	"context"
	"net/http"

	"github.com/carelinkhq/carelink/internal/models"
	pkghttp "github.com/carelinkhq/carelink/pkg/http"
)

// AuditServiceInterface defines the interface for audit trail queries
type AuditServiceInterface interface {
	GetTrail(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*models.AuditLog, error)
}

// AuditHandler serves audit trail queries for administrators.
type AuditHandler struct {
	service AuditServiceInterface
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service AuditServiceInterface) *AuditHandler {
	return &AuditHandler{service: service}
}

// GetTrail returns audit entries for a resource, newest first.
func (h *AuditHandler) GetTrail(w http.ResponseWriter, r *http.Request) {
	resourceType := r.URL.Query().Get("resource_type")
	resourceID := r.URL.Query().Get("resource_id")
	if resourceType == "" || resourceID == "" {
		pkghttp.WriteBadRequest(w, "resource_type and resource_id are required")
		return
	}

	logs, err := h.service.GetTrail(r.Context(), resourceType, resourceID,
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": logs,
		"count":   len(logs),
	})
}
