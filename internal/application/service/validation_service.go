package service

import (
	"context"
	"time"

	"github.com/courierd/courierd/internal/application/dto"
	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/internal/domain/repository"
	domainService "github.com/courierd/courierd/internal/domain/service"
	"github.com/courierd/courierd/internal/infrastructure/crypto"
	"github.com/courierd/courierd/internal/infrastructure/monitoring"
	"github.com/courierd/courierd/internal/infrastructure/ratelimit"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/logger"
)

// ValidationService runs a presented credential through the ordered
// validation stages: syntactic check, record lookup, expiry, scope, and rate
// limit. Every attempt produces exactly one audit event describing its
// outcome.
//
// Failure policy differs by dependency: record store failures deny the
// request (a key that cannot be verified must not be trusted), counter store
// failures allow it (availability beats quota precision).
type ValidationService interface {
	// Validate never returns an error: internal failures collapse into a
	// denial with the generic auth error code.
	Validate(ctx context.Context, req *dto.ValidateKeyRequest) *dto.ValidationResult
}

type validationServiceImpl struct {
	keyRepo   repository.APIKeyRepository
	limiter   *ratelimit.FixedWindowLimiter
	auditSink domainService.AuditSink
	metrics   *monitoring.Metrics
	logger    logger.Logger
	now       func() time.Time
}

// NewValidationService creates the pipeline. metrics may be nil.
func NewValidationService(
	keyRepo repository.APIKeyRepository,
	limiter *ratelimit.FixedWindowLimiter,
	auditSink domainService.AuditSink,
	metrics *monitoring.Metrics,
	log logger.Logger,
) ValidationService {
	return &validationServiceImpl{
		keyRepo:   keyRepo,
		limiter:   limiter,
		auditSink: auditSink,
		metrics:   metrics,
		logger:    log.WithComponent("validation_service"),
		now:       time.Now,
	}
}

func (s *validationServiceImpl) Validate(ctx context.Context, req *dto.ValidateKeyRequest) (result *dto.ValidationResult) {
	start := s.now()

	// Whatever goes wrong inside the pipeline, the caller gets a denial
	// with the opaque auth error code, never a panic and never detail.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "validation pipeline panicked", nil,
				logger.Any("panic", r),
				logger.String("request_id", req.RequestID),
			)
			result = dto.Denied(constants.ErrCodeAuthError)
		}
		s.observe(result, s.now().Sub(start))
	}()

	if req.FromQueryParam {
		s.logger.Warn(ctx, "credential presented via query parameter",
			logger.String("ip", req.ClientIP),
			logger.String("request_id", req.RequestID),
		)
	}

	// Stage 1: syntactic check. Malformed input is rejected before any
	// hashing or I/O, and audited under the sentinel digest.
	if !crypto.ValidFormat(req.Credential) {
		s.audit(req, models.NewSecurityEvent(constants.EventTypeInvalidAttempt, "malformed credential").
			WithKeyHash(constants.SentinelDigest))
		return dto.Denied(constants.ErrCodeInvalidFormat)
	}

	keyHash := crypto.HashSecret(req.Credential)

	// Stage 2: record lookup. Store errors fail closed; unknown and
	// deactivated keys are indistinguishable.
	key, err := s.keyRepo.FindActiveByHash(ctx, keyHash)
	if err != nil {
		s.logger.Error(ctx, "record store lookup failed", err,
			logger.String("request_id", req.RequestID),
		)
		s.audit(req, models.NewSecurityEvent(constants.EventTypeSuspicious, "validation aborted on store failure").
			WithKeyHash(keyHash).
			WithMetadata(map[string]interface{}{"reason": "record_store_error"}))
		return dto.Denied(constants.ErrCodeAuthError)
	}
	if key == nil {
		s.audit(req, models.NewSecurityEvent(constants.EventTypeInvalidAttempt, "unknown or inactive credential").
			WithKeyHash(keyHash))
		return dto.Denied(constants.ErrCodeInvalidCredential)
	}

	// Stage 3: expiry. Checked at validation time, not only by the sweeper,
	// so a key past its expiry is dead even before the next sweep.
	if key.IsExpired(s.now()) {
		s.audit(req, models.NewSecurityEvent(constants.EventTypeKeyExpired, "expired credential").
			WithKey(key.ID, key.OrganizationID))
		return dto.Denied(constants.ErrCodeCredentialExpired)
	}

	// Stage 4: scope. A valid key used outside its capabilities is a
	// security signal, so this lands in the audit trail as suspicious.
	if req.RequiredScope != "" && !key.HasScope(req.RequiredScope) {
		s.audit(req, models.NewSecurityEvent(constants.EventTypeSuspicious, "scope violation").
			WithKey(key.ID, key.OrganizationID).
			WithMetadata(map[string]interface{}{
				"required_scope":   req.RequiredScope,
				"available_scopes": key.Scopes,
			}))
		return dto.Denied(constants.ErrCodeInsufficientScope)
	}

	// Stage 5: rate limit. Counter store failures fail open.
	var rateStatus *dto.RateLimitStatus
	window, err := s.limiter.Check(ctx, key.ID, key.RateLimitHourly, key.RateLimitDaily, s.now())
	if err != nil {
		s.logger.Error(ctx, "counter store unavailable, allowing request", err,
			logger.String("key_id", key.ID),
			logger.String("request_id", req.RequestID),
		)
		if s.metrics != nil {
			s.metrics.CounterStoreErrors.Inc()
		}
		// Fail open still reports a coherent snapshot: an untouched hourly
		// window, so callers see current=0 rather than a missing quota.
		rateStatus = &dto.RateLimitStatus{
			Window:    constants.RateWindowHourly,
			Limit:     key.RateLimitHourly,
			Remaining: key.RateLimitHourly,
			ResetAt:   s.now().Truncate(time.Hour).Add(time.Hour),
		}
	} else {
		rateStatus = &dto.RateLimitStatus{
			Window:    window.Window,
			Limit:     window.Limit,
			Remaining: window.Remaining(),
			ResetAt:   window.ResetAt,
		}
		if !window.Allowed {
			if s.metrics != nil {
				s.metrics.RateLimitHits.WithLabelValues(string(window.Window)).Inc()
			}
			s.audit(req, models.NewSecurityEvent(constants.EventTypeRateLimitExceeded, "rate limit exceeded").
				WithKey(key.ID, key.OrganizationID).
				WithMetadata(map[string]interface{}{
					"window":     string(window.Window),
					"limit":      window.Limit,
					"current":    window.Current,
					"window_ms":  window.WindowLength.Milliseconds(),
					"reset_time": window.ResetAt,
				}))
			denied := dto.Denied(constants.ErrCodeRateLimitExceeded)
			denied.RateLimit = rateStatus
			return denied
		}
	}

	// Stage 6: success. The last-used touch is best-effort and off the
	// request path; a failed touch never fails validation.
	s.audit(req, models.NewSecurityEvent(constants.EventTypeKeyUsed, "key validated").
		WithKey(key.ID, key.OrganizationID))
	go s.touchLastUsed(key.ID)

	return &dto.ValidationResult{
		Valid:     true,
		Key:       dto.NewKeyView(key),
		RateLimit: rateStatus,
	}
}

// audit stamps the request context onto the event and enqueues it.
func (s *validationServiceImpl) audit(req *dto.ValidateKeyRequest, event *models.SecurityEvent) {
	s.auditSink.Record(event.WithRequestInfo(req.ClientIP, req.UserAgent, req.RequestID))
}

func (s *validationServiceImpl) touchLastUsed(keyID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.keyRepo.TouchLastUsed(ctx, keyID, s.now()); err != nil {
		s.logger.Warn(ctx, "failed to touch last-used timestamp",
			logger.String("key_id", keyID),
			logger.Error(err),
		)
	}
}

func (s *validationServiceImpl) observe(result *dto.ValidationResult, elapsed time.Duration) {
	if s.metrics == nil || result == nil {
		return
	}
	outcome := "valid"
	if !result.Valid {
		outcome = string(result.Reason)
	}
	s.metrics.ValidationOutcomes.WithLabelValues(outcome).Inc()
	s.metrics.ValidationLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
