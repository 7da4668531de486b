package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/carelinkhq/carelink/internal/models"
	pkghttp "github.com/carelinkhq/carelink/pkg/http"
	"github.com/go-chi/chi/v5"
)

// WorkerServiceInterface defines the interface for roster business logic
type WorkerServiceInterface interface {
	List(ctx context.Context, filter models.WorkerFilter) ([]*models.SupportWorker, error)
	Get(ctx context.Context, id string) (*models.SupportWorker, error)
	Visits(ctx context.Context, workerID string, filter models.VisitFilter) ([]*models.Visit, error)
	ScheduleVisit(ctx context.Context, visit *models.Visit) (*models.Visit, error)
	CheckIn(ctx context.Context, visitID string) error
	CheckOut(ctx context.Context, visitID string) error
}

// WorkerHandler handles support worker roster HTTP requests
type WorkerHandler struct {
	service WorkerServiceInterface
}

// NewWorkerHandler creates a new WorkerHandler
func NewWorkerHandler(service WorkerServiceInterface) *WorkerHandler {
	return &WorkerHandler{service: service}
}

// ScheduleVisitRequest represents the request body for scheduling a visit
type ScheduleVisitRequest struct {
	ClientName  string    `json:"client_name" validate:"required,min=1,max=200"`
	Location    string    `json:"location" validate:"max=500"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes" validate:"max=2000"`
}

// List returns workers matching the query parameters.
func (h *WorkerHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.WorkerFilter{
		Query:  r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("status"),
		Region: r.URL.Query().Get("region"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	workers, err := h.service.List(r.Context(), filter)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"workers": workers,
		"count":   len(workers),
	})
}

// Get returns a single worker.
func (h *WorkerHandler) Get(w http.ResponseWriter, r *http.Request) {
	worker, err := h.service.Get(r.Context(), chi.URLParam(r, "workerID"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Worker not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, worker)
}

// Visits returns a worker's visits inside the requested window.
func (h *WorkerHandler) Visits(w http.ResponseWriter, r *http.Request) {
	filter := models.VisitFilter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid 'from' timestamp, expected RFC3339")
			return
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid 'to' timestamp, expected RFC3339")
			return
		}
		filter.To = t
	}

	visits, err := h.service.Visits(r.Context(), chi.URLParam(r, "workerID"), filter)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Worker not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"visits": visits,
		"count":  len(visits),
	})
}

// ScheduleVisit creates a visit for a worker.
func (h *WorkerHandler) ScheduleVisit(w http.ResponseWriter, r *http.Request) {
	var req ScheduleVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	visit, err := h.service.ScheduleVisit(r.Context(), &models.Visit{
		WorkerID:    chi.URLParam(r, "workerID"),
		ClientName:  req.ClientName,
		Location:    req.Location,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Worker not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Missing required visit fields")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, visit)
}

// CheckIn stamps a visit's check-in time.
func (h *WorkerHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.stamp(w, r, h.service.CheckIn)
}

// CheckOut stamps a visit's check-out time.
func (h *WorkerHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.stamp(w, r, h.service.CheckOut)
}

func (h *WorkerHandler) stamp(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) error) {
	if err := fn(r.Context(), chi.URLParam(r, "visitID")); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Visit not found or not in a stampable state")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
