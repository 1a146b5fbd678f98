package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/logger"
)

type stubEventRepo struct {
	events       []*models.SecurityEvent
	summaryCalls int
}

func (r *stubEventRepo) Append(_ context.Context, event *models.SecurityEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *stubEventRepo) Recent(_ context.Context, limit int, types []constants.SecurityEventType) ([]*models.SecurityEvent, error) {
	var out []*models.SecurityEvent
	for _, e := range r.events {
		if len(types) > 0 {
			match := false
			for _, t := range types {
				if e.EventType == t {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubEventRepo) ByKey(_ context.Context, keyID string, limit int) ([]*models.SecurityEvent, error) {
	var out []*models.SecurityEvent
	for _, e := range r.events {
		if e.KeyID != nil && *e.KeyID == keyID {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubEventRepo) SuspiciousActivitySummary(context.Context, time.Time) (*models.SuspiciousActivitySummary, error) {
	r.summaryCalls++
	return &models.SuspiciousActivitySummary{InvalidAttempts: 7}, nil
}

func TestRecentEvents_Filter(t *testing.T) {
	repo := &stubEventRepo{events: []*models.SecurityEvent{
		models.NewSecurityEvent(constants.EventTypeKeyUsed, "ok"),
		models.NewSecurityEvent(constants.EventTypeInvalidAttempt, "bad"),
	}}
	svc := NewAuditQueryService(repo, logger.NewNoopLogger())

	resp, err := svc.RecentEvents(context.Background(), 10, []constants.SecurityEventType{constants.EventTypeInvalidAttempt})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, constants.EventTypeInvalidAttempt, resp.Events[0].EventType)
}

func TestEventsByKey_RequiresID(t *testing.T) {
	svc := NewAuditQueryService(&stubEventRepo{}, logger.NewNoopLogger())

	_, err := svc.EventsByKey(context.Background(), "", 10)
	require.Error(t, err)
}

func TestSuspiciousSummary_Cached(t *testing.T) {
	repo := &stubEventRepo{}
	svc := NewAuditQueryService(repo, logger.NewNoopLogger())

	first, err := svc.SuspiciousSummary(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, int64(7), first.InvalidAttempts)
	assert.Equal(t, 24, first.WindowHours)

	// A second read inside the TTL hits the cache, not the store.
	_, err = svc.SuspiciousSummary(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.summaryCalls)

	// A different window bypasses the cached aggregate.
	_, err = svc.SuspiciousSummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.summaryCalls)
}
