package service

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"

	"github.com/courierd/courierd/internal/application/dto"
	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/internal/domain/repository"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/errors"
	"github.com/courierd/courierd/pkg/logger"
)

const suspiciousSummaryCacheKey = "suspicious_summary"

// AuditQueryService exposes the read side of the audit trail.
type AuditQueryService interface {
	// RecentEvents returns the newest events, optionally filtered by type.
	RecentEvents(ctx context.Context, limit int, eventTypes []constants.SecurityEventType) (*dto.SecurityEventListResponse, error)

	// EventsByKey returns the newest events referencing the given key.
	EventsByKey(ctx context.Context, keyID string, limit int) (*dto.SecurityEventListResponse, error)

	// SuspiciousSummary aggregates failure signals over the given window.
	// The aggregate is cached briefly; staleness up to the cache TTL is fine
	// for a forensic dashboard number.
	SuspiciousSummary(ctx context.Context, windowHours int) (*models.SuspiciousActivitySummary, error)
}

type auditQueryServiceImpl struct {
	eventRepo repository.SecurityEventRepository
	cache     *goCache.Cache
	logger    logger.Logger
}

// NewAuditQueryService creates the audit read service.
func NewAuditQueryService(eventRepo repository.SecurityEventRepository, log logger.Logger) AuditQueryService {
	return &auditQueryServiceImpl{
		eventRepo: eventRepo,
		cache:     goCache.New(constants.SuspiciousSummaryCacheTTL, 5*time.Minute),
		logger:    log.WithComponent("audit_query_service"),
	}
}

func (s *auditQueryServiceImpl) RecentEvents(ctx context.Context, limit int, eventTypes []constants.SecurityEventType) (*dto.SecurityEventListResponse, error) {
	events, err := s.eventRepo.Recent(ctx, limit, eventTypes)
	if err != nil {
		s.logger.Error(ctx, "failed to query recent events", err)
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to query audit trail")
	}
	return dto.NewSecurityEventListResponse(events), nil
}

func (s *auditQueryServiceImpl) EventsByKey(ctx context.Context, keyID string, limit int) (*dto.SecurityEventListResponse, error) {
	if keyID == "" {
		return nil, errors.ErrInvalidRequest("key id is required")
	}
	events, err := s.eventRepo.ByKey(ctx, keyID, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to query events by key", err, logger.String("key_id", keyID))
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to query audit trail")
	}
	return dto.NewSecurityEventListResponse(events), nil
}

func (s *auditQueryServiceImpl) SuspiciousSummary(ctx context.Context, windowHours int) (*models.SuspiciousActivitySummary, error) {
	if windowHours <= 0 {
		windowHours = 24
	}

	if cached, found := s.cache.Get(suspiciousSummaryCacheKey); found {
		if summary, ok := cached.(*models.SuspiciousActivitySummary); ok && summary.WindowHours == windowHours {
			return summary, nil
		}
	}

	since := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	summary, err := s.eventRepo.SuspiciousActivitySummary(ctx, since)
	if err != nil {
		s.logger.Error(ctx, "failed to aggregate suspicious activity", err)
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to aggregate audit trail")
	}
	summary.WindowHours = windowHours

	s.cache.Set(suspiciousSummaryCacheKey, summary, goCache.DefaultExpiration)
	return summary, nil
}
