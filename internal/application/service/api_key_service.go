// Package service provides the application services that orchestrate the
// domain repositories, the rate limiter, and the audit sink.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/courierd/courierd/internal/application/dto"
	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/internal/domain/repository"
	domainService "github.com/courierd/courierd/internal/domain/service"
	"github.com/courierd/courierd/internal/infrastructure/crypto"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/errors"
	"github.com/courierd/courierd/pkg/logger"
)

// APIKeyAppService manages the lifecycle of API keys.
type APIKeyAppService interface {
	// CreateKey provisions a new key. The response carries the plaintext
	// credential; it is shown exactly once and never recoverable.
	CreateKey(ctx context.Context, req *dto.CreateKeyRequest) (*dto.CreateKeyResponse, error)

	// DeactivateKey soft-deactivates a key by id. The record is kept and the
	// acting principal, when known, lands in the audit trail.
	DeactivateKey(ctx context.Context, id, actorID string) error

	// GetKey returns the sanitized view of a key regardless of active state.
	GetKey(ctx context.Context, id string) (*dto.KeyView, error)

	// ListKeys returns the sanitized views of an organization's keys.
	ListKeys(ctx context.Context, orgID string) ([]*dto.KeyView, error)

	// CleanupExpired deactivates expired-but-active keys and reports how many.
	CleanupExpired(ctx context.Context) (int64, error)
}

type apiKeyAppServiceImpl struct {
	keyRepo       repository.APIKeyRepository
	auditSink     domainService.AuditSink
	defaultHourly int64
	defaultDaily  int64
	logger        logger.Logger
}

// NewAPIKeyAppService creates the key management service. The default limits
// apply to keys created without explicit ceilings.
func NewAPIKeyAppService(
	keyRepo repository.APIKeyRepository,
	auditSink domainService.AuditSink,
	defaultHourly, defaultDaily int64,
	log logger.Logger,
) APIKeyAppService {
	if defaultHourly <= 0 {
		defaultHourly = constants.DefaultHourlyLimit
	}
	if defaultDaily <= 0 {
		defaultDaily = constants.DefaultDailyLimit
	}
	return &apiKeyAppServiceImpl{
		keyRepo:       keyRepo,
		auditSink:     auditSink,
		defaultHourly: defaultHourly,
		defaultDaily:  defaultDaily,
		logger:        log.WithComponent("api_key_service"),
	}
}

func (s *apiKeyAppServiceImpl) CreateKey(ctx context.Context, req *dto.CreateKeyRequest) (*dto.CreateKeyResponse, error) {
	if req == nil || req.Name == "" {
		return nil, errors.ErrInvalidRequest("key name is required")
	}
	if len(req.Scopes) == 0 {
		return nil, errors.ErrInvalidRequest("at least one scope is required")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return nil, errors.ErrInvalidRequest("expires_at must be in the future")
	}

	secret, err := crypto.GenerateSecret()
	if err != nil {
		s.logger.Error(ctx, "failed to generate key secret", err)
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to generate key")
	}

	hourly := s.defaultHourly
	if req.RateLimitHourly != nil {
		hourly = *req.RateLimitHourly
	}
	daily := s.defaultDaily
	if req.RateLimitDaily != nil {
		daily = *req.RateLimitDaily
	}

	key := &models.APIKey{
		ID:              uuid.NewString(),
		KeyHash:         crypto.HashSecret(secret),
		Name:            req.Name,
		Scopes:          req.Scopes,
		RateLimitHourly: hourly,
		RateLimitDaily:  daily,
		IsActive:        true,
		ExpiresAt:       req.ExpiresAt,
		OrganizationID:  req.OrganizationID,
		CreatedByUserID: req.CreatedByUserID,
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		s.logger.Error(ctx, "failed to persist key", err, logger.String("name", req.Name))
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to create key")
	}

	s.auditSink.Record(models.NewSecurityEvent(constants.EventTypeKeyCreated, "API key created").
		WithKey(key.ID, key.OrganizationID).
		WithMetadata(map[string]interface{}{
			"name":   key.Name,
			"scopes": key.Scopes,
		}))

	s.logger.Info(ctx, "API key created",
		logger.String("key_id", key.ID),
		logger.String("name", key.Name),
	)

	return &dto.CreateKeyResponse{
		ID:     key.ID,
		Name:   key.Name,
		APIKey: secret,
		Scopes: key.Scopes,
		RateLimit: models.RateLimit{
			Hourly: key.RateLimitHourly,
			Daily:  key.RateLimitDaily,
		},
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	}, nil
}

func (s *apiKeyAppServiceImpl) DeactivateKey(ctx context.Context, id, actorID string) error {
	key, err := s.keyRepo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error(ctx, "failed to look up key", err, logger.String("key_id", id))
		return errors.Wrap(err, constants.ErrCodeInternal, "failed to look up key")
	}
	if key == nil {
		return errors.ErrNotFound("key not found")
	}

	if err := s.keyRepo.Deactivate(ctx, id); err != nil {
		s.logger.Error(ctx, "failed to deactivate key", err, logger.String("key_id", id))
		return errors.Wrap(err, constants.ErrCodeInternal, "failed to deactivate key")
	}

	event := models.NewSecurityEvent(constants.EventTypeKeyDeleted, "API key deactivated").
		WithKey(key.ID, key.OrganizationID)
	if actorID != "" {
		event = event.WithMetadata(map[string]interface{}{"actor_id": actorID})
	}
	s.auditSink.Record(event)

	s.logger.Info(ctx, "API key deactivated",
		logger.String("key_id", id),
		logger.String("actor_id", actorID),
	)
	return nil
}

func (s *apiKeyAppServiceImpl) GetKey(ctx context.Context, id string) (*dto.KeyView, error) {
	key, err := s.keyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to look up key")
	}
	if key == nil {
		return nil, errors.ErrNotFound("key not found")
	}
	return dto.NewKeyView(key), nil
}

func (s *apiKeyAppServiceImpl) ListKeys(ctx context.Context, orgID string) ([]*dto.KeyView, error) {
	if orgID == "" {
		return nil, errors.ErrInvalidRequest("organization id is required")
	}
	keys, err := s.keyRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to list keys")
	}
	views := make([]*dto.KeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, dto.NewKeyView(k))
	}
	return views, nil
}

func (s *apiKeyAppServiceImpl) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.keyRepo.CleanupExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error(ctx, "expired key sweep failed", err)
		return 0, errors.Wrap(err, constants.ErrCodeInternal, "cleanup failed")
	}
	if count > 0 {
		s.logger.Info(ctx, "expired keys deactivated", logger.Int64("count", count))
	}
	return count, nil
}
