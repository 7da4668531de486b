package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/internal/repositories"
)

func TestIdentityRepository_CreateAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	repo := repositories.NewIdentityRepository(testDB.DB)

	// Directory-external identities carry no stored hash
	created, err := repo.Create(ctx, &models.Identity{
		Email: "external@carelink.test",
		Name:  "External Identity",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.RoleStaff, created.Role)
	assert.Equal(t, "active", created.Status)
	assert.Empty(t, created.PasswordHash)

	fetched, err := repo.GetByEmail(ctx, "external@carelink.test")
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Empty(t, fetched.PasswordHash)
}
