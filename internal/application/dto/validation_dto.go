package dto

import (
	"time"

	"github.com/courierd/courierd/pkg/constants"
)

// ValidateKeyRequest carries a presented credential plus the request context
// needed for auditing. The transport layer fills it; the pipeline never
// touches transport types.
type ValidateKeyRequest struct {
	// Credential is the presented plaintext secret.
	Credential string
	// RequiredScope is the capability the target operation demands.
	RequiredScope string
	// ClientIP is the derived client address, or the unknown sentinel.
	ClientIP string
	// UserAgent is the caller's user agent, possibly empty.
	UserAgent string
	// RequestID correlates the attempt with request logs.
	RequestID string
	// FromQueryParam marks credentials taken from the query string, the
	// least trusted source.
	FromQueryParam bool
}

// RateLimitStatus describes the window that decided a rate-limit outcome.
// On denial it names the exceeded window; on success the hourly window.
type RateLimitStatus struct {
	Window    constants.RateWindow `json:"window"`
	Limit     int64                `json:"limit"`
	Remaining int64                `json:"remaining"`
	ResetAt   time.Time            `json:"reset_at"`
}

// ValidationResult is the single outcome type of the validation pipeline.
// Exactly one of Key (valid) or Reason (denied) is meaningful.
type ValidationResult struct {
	// Valid is true only when every stage passed.
	Valid bool
	// Reason is the stable denial code; empty when Valid.
	Reason constants.ErrorCode
	// Key is the sanitized projection of the authenticated key.
	Key *KeyView
	// RateLimit lets the transport emit quota headers. It is nil when an
	// earlier stage denied the request; on a counter store outage it
	// reports an untouched window so callers still see a coherent quota.
	RateLimit *RateLimitStatus
}

// Denied builds a denial result for the given code.
func Denied(reason constants.ErrorCode) *ValidationResult {
	return &ValidationResult{Valid: false, Reason: reason}
}
