package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/internal/domain/repository"
	"github.com/courierd/courierd/pkg/constants"
)

// SecurityEventRepository is the gorm implementation of the append-only
// audit store. It exposes no update or delete operations.
type SecurityEventRepository struct {
	db *gorm.DB
}

var _ repository.SecurityEventRepository = (*SecurityEventRepository)(nil)

// NewSecurityEventRepository creates a new SecurityEventRepository.
func NewSecurityEventRepository(db *gorm.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// Append persists one immutable event.
func (r *SecurityEventRepository) Append(ctx context.Context, event *models.SecurityEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append security event: %w", err)
	}
	return nil
}

// Recent returns the newest events, optionally filtered by type.
func (r *SecurityEventRepository) Recent(ctx context.Context, limit int, eventTypes []constants.SecurityEventType) ([]*models.SecurityEvent, error) {
	query := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit))
	if len(eventTypes) > 0 {
		query = query.Where("event_type IN ?", eventTypes)
	}

	var events []*models.SecurityEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	return events, nil
}

// ByKey returns the newest events referencing the given key id.
func (r *SecurityEventRepository) ByKey(ctx context.Context, keyID string, limit int) ([]*models.SecurityEvent, error) {
	var events []*models.SecurityEvent
	err := r.db.WithContext(ctx).
		Where("key_id = ?", keyID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query events by key: %w", err)
	}
	return events, nil
}

// SuspiciousActivitySummary aggregates failure signals since the cutoff.
func (r *SecurityEventRepository) SuspiciousActivitySummary(ctx context.Context, since time.Time) (*models.SuspiciousActivitySummary, error) {
	summary := &models.SuspiciousActivitySummary{}

	counts := []struct {
		eventType constants.SecurityEventType
		target    *int64
	}{
		{constants.EventTypeInvalidAttempt, &summary.InvalidAttempts},
		{constants.EventTypeRateLimitExceeded, &summary.RateLimitExceeded},
		{constants.EventTypeKeyExpired, &summary.ExpiredAttempts},
	}
	for _, c := range counts {
		err := r.db.WithContext(ctx).
			Model(&models.SecurityEvent{}).
			Where("event_type = ? AND created_at >= ?", c.eventType, since).
			Count(c.target).Error
		if err != nil {
			return nil, fmt.Errorf("count %s events: %w", c.eventType, err)
		}
	}

	failureTypes := []constants.SecurityEventType{
		constants.EventTypeInvalidAttempt,
		constants.EventTypeRateLimitExceeded,
		constants.EventTypeKeyExpired,
		constants.EventTypeSuspicious,
	}
	err := r.db.WithContext(ctx).
		Model(&models.SecurityEvent{}).
		Where("event_type IN ? AND created_at >= ?", failureTypes, since).
		Distinct("ip_address").
		Count(&summary.UniqueIPCount).Error
	if err != nil {
		return nil, fmt.Errorf("count distinct ips: %w", err)
	}

	return summary, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return constants.DefaultAuditQueryLimit
	}
	if limit > constants.MaxAuditQueryLimit {
		return constants.MaxAuditQueryLimit
	}
	return limit
}
