package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carelinkhq/carelink/internal/models"
)

// SettingsStore persists per-identity settings blobs.
type SettingsStore interface {
	Get(ctx context.Context, identityID string) (models.SettingsBlob, error)
	Save(ctx context.Context, identityID string, blob models.SettingsBlob) error
}

// SettingsService serves the per-identity settings blob synced down at
// login. Settings are namespaced by identity id, so two identities on the
// same device never see each other's state.
type SettingsService struct {
	store  SettingsStore
	logger *slog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(store SettingsStore, slogger *slog.Logger) *SettingsService {
	return &SettingsService{
		store:  store,
		logger: slogger,
	}
}

// Get returns the settings blob for an identity. A missing blob is empty,
// not an error.
func (s *SettingsService) Get(ctx context.Context, identityID string) (models.SettingsBlob, error) {
	blob, err := s.store.Get(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if blob == nil {
		blob = models.SettingsBlob{}
	}
	return blob, nil
}

// Save replaces the settings blob for an identity.
func (s *SettingsService) Save(ctx context.Context, identityID string, blob models.SettingsBlob) error {
	if err := s.store.Save(ctx, identityID, blob); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.logger.InfoContext(ctx, "settings saved",
		slog.String("identity_id", identityID))

	return nil
}
