package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/pkg/logger"
)

// AuditLogStore persists audit records.
type AuditLogStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*models.AuditLog, error)
}

// AuditService handles audit logging with dual-write pattern (slog + database)
type AuditService struct {
	store       AuditLogStore
	auditLogger *logger.AuditLogger
	logger      *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(store AuditLogStore, slogger *slog.Logger) *AuditService {
	return &AuditService{
		store:       store,
		auditLogger: logger.NewAuditLogger(slogger),
		logger:      slogger,
	}
}

// Record emits an audit event to the log stream and persists it. Persistence
// failures are logged but never fail the calling operation.
func (s *AuditService) Record(ctx context.Context, event logger.AuditEvent) {
	s.auditLogger.Log(event)

	entry := &models.AuditLog{
		Action:       event.Action,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Outcome:      event.Outcome,
		Metadata:     models.AuditMetadata(event.Metadata),
	}
	if entry.Metadata == nil {
		entry.Metadata = models.AuditMetadata{}
	}
	if event.Reason != "" {
		entry.Metadata["reason"] = event.Reason
	}
	if event.IPAddress != "" {
		entry.Metadata["ip_address"] = event.IPAddress
	}
	if event.UserAgent != "" {
		entry.Metadata["user_agent"] = event.UserAgent
	}

	if err := s.store.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", event.Action),
			slog.Any("error", err),
		)
	}
}

// GetTrail retrieves the audit trail for a resource, newest first.
func (s *AuditService) GetTrail(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.store.ListByResource(ctx, resourceType, resourceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}

	return logs, nil
}
