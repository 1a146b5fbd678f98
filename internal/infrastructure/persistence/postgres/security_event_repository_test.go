package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/pkg/constants"
)

func appendEvent(t *testing.T, repo *SecurityEventRepository, eventType constants.SecurityEventType, ip string, keyID *string, age time.Duration) {
	t.Helper()

	event := models.NewSecurityEvent(eventType, "test event").
		WithRequestInfo(ip, "test-agent", "req-1")
	event.CreatedAt = time.Now().UTC().Add(-age)
	event.KeyID = keyID
	require.NoError(t, repo.Append(context.Background(), event))
}

func TestSecurityEventRepository_RecentFiltersByType(t *testing.T) {
	repo := NewSecurityEventRepository(newTestDB(t))
	ctx := context.Background()

	appendEvent(t, repo, constants.EventTypeKeyUsed, "10.0.0.1", nil, time.Minute)
	appendEvent(t, repo, constants.EventTypeInvalidAttempt, "10.0.0.2", nil, 2*time.Minute)
	appendEvent(t, repo, constants.EventTypeInvalidAttempt, "10.0.0.3", nil, 3*time.Minute)

	events, err := repo.Recent(ctx, 10, nil)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	// Newest first.
	assert.Equal(t, constants.EventTypeKeyUsed, events[0].EventType)

	events, err = repo.Recent(ctx, 10, []constants.SecurityEventType{constants.EventTypeInvalidAttempt})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = repo.Recent(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSecurityEventRepository_ByKey(t *testing.T) {
	repo := NewSecurityEventRepository(newTestDB(t))
	ctx := context.Background()

	keyID := "key-123"
	appendEvent(t, repo, constants.EventTypeKeyUsed, "10.0.0.1", &keyID, time.Minute)
	appendEvent(t, repo, constants.EventTypeRateLimitExceeded, "10.0.0.1", &keyID, 2*time.Minute)
	appendEvent(t, repo, constants.EventTypeKeyUsed, "10.0.0.1", nil, time.Minute)

	events, err := repo.ByKey(ctx, keyID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	for _, e := range events {
		require.NotNil(t, e.KeyID)
		assert.Equal(t, keyID, *e.KeyID)
	}
}

func TestSecurityEventRepository_SuspiciousActivitySummary(t *testing.T) {
	repo := NewSecurityEventRepository(newTestDB(t))
	ctx := context.Background()

	appendEvent(t, repo, constants.EventTypeInvalidAttempt, "10.0.0.1", nil, time.Minute)
	appendEvent(t, repo, constants.EventTypeInvalidAttempt, "10.0.0.1", nil, 2*time.Minute)
	appendEvent(t, repo, constants.EventTypeRateLimitExceeded, "10.0.0.2", nil, time.Minute)
	appendEvent(t, repo, constants.EventTypeKeyExpired, "10.0.0.3", nil, time.Minute)
	// Success events never count toward the summary.
	appendEvent(t, repo, constants.EventTypeKeyUsed, "10.0.0.4", nil, time.Minute)
	// Outside the window.
	appendEvent(t, repo, constants.EventTypeInvalidAttempt, "10.0.0.5", nil, 48*time.Hour)

	summary, err := repo.SuspiciousActivitySummary(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.InvalidAttempts)
	assert.Equal(t, int64(1), summary.RateLimitExceeded)
	assert.Equal(t, int64(1), summary.ExpiredAttempts)
	assert.Equal(t, int64(3), summary.UniqueIPCount)
}
