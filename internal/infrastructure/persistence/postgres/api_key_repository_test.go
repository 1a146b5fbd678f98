package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/courierd/courierd/internal/domain/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func newKey(name string, active bool, expiresAt *time.Time) *models.APIKey {
	org := "org-1"
	return &models.APIKey{
		ID:              uuid.NewString(),
		KeyHash:         uuid.NewString(),
		Name:            name,
		Scopes:          []string{"notifications:create"},
		RateLimitHourly: 100,
		RateLimitDaily:  1000,
		IsActive:        active,
		ExpiresAt:       expiresAt,
		OrganizationID:  &org,
	}
}

func TestAPIKeyRepository_FindActiveByHash(t *testing.T) {
	repo := NewAPIKeyRepository(newTestDB(t))
	ctx := context.Background()

	active := newKey("active", true, nil)
	inactive := newKey("inactive", false, nil)
	require.NoError(t, repo.Create(ctx, active))
	require.NoError(t, repo.Create(ctx, inactive))

	found, err := repo.FindActiveByHash(ctx, active.KeyHash)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, active.ID, found.ID)

	// Deactivated and absent records are indistinguishable: both (nil, nil).
	found, err = repo.FindActiveByHash(ctx, inactive.KeyHash)
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindActiveByHash(ctx, "no-such-hash")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAPIKeyRepository_DeactivateKeepsRecord(t *testing.T) {
	repo := NewAPIKeyRepository(newTestDB(t))
	ctx := context.Background()

	key := newKey("doomed", true, nil)
	require.NoError(t, repo.Create(ctx, key))
	require.NoError(t, repo.Deactivate(ctx, key.ID))

	// Gone from lookup but still present for audit references.
	found, err := repo.FindActiveByHash(ctx, key.KeyHash)
	require.NoError(t, err)
	assert.Nil(t, found)

	stored, err := repo.FindByID(ctx, key.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	assert.ErrorIs(t, repo.Deactivate(ctx, "missing-id"), gorm.ErrRecordNotFound)
}

func TestAPIKeyRepository_TouchLastUsed(t *testing.T) {
	repo := NewAPIKeyRepository(newTestDB(t))
	ctx := context.Background()

	key := newKey("touched", true, nil)
	require.NoError(t, repo.Create(ctx, key))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.TouchLastUsed(ctx, key.ID, at))

	stored, err := repo.FindByID(ctx, key.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUsedAt)
	assert.WithinDuration(t, at, *stored.LastUsedAt, time.Second)
}

func TestAPIKeyRepository_CleanupExpired(t *testing.T) {
	repo := NewAPIKeyRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	expired := newKey("expired", true, &past)
	alive := newKey("alive", true, &future)
	forever := newKey("forever", true, nil)
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, repo.Create(ctx, alive))
	require.NoError(t, repo.Create(ctx, forever))

	count, err := repo.CleanupExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Idempotent: a second sweep over the same set transitions nothing.
	count, err = repo.CleanupExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	stored, err := repo.FindByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	stored, err = repo.FindByID(ctx, alive.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestAPIKeyRepository_ListByOrganizationExcludesHash(t *testing.T) {
	repo := NewAPIKeyRepository(newTestDB(t))
	ctx := context.Background()

	key := newKey("listed", true, nil)
	require.NoError(t, repo.Create(ctx, key))

	keys, err := repo.ListByOrganization(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
	assert.Empty(t, keys[0].KeyHash, "digest must never leave the projection")

	keys, err = repo.ListByOrganization(ctx, "other-org")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
