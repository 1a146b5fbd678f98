// Package constants defines system-wide constants for the courierd notification API.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// API Key Constants
// ================================================================================

const (
	// APIKeySecretBytes is the number of random bytes in a generated credential.
	APIKeySecretBytes = 32

	// APIKeyEncodedLength is the length of the URL-safe base64 encoding of the
	// secret, without padding (32 bytes -> 43 characters).
	APIKeyEncodedLength = 43

	// SentinelDigest is recorded on audit events for credentials that never
	// passed the syntactic check. No real hash is computed for malformed input,
	// so the key_hash field stays meaningful for genuine digest computations.
	SentinelDigest = "malformed"
)

// ================================================================================
// Rate Limiting Constants
// ================================================================================

const (
	// DefaultHourlyLimit is the per-key hourly request ceiling applied when a
	// key is created without an explicit limit.
	DefaultHourlyLimit = 1000

	// DefaultDailyLimit is the per-key daily request ceiling applied when a
	// key is created without an explicit limit.
	DefaultDailyLimit = 10000

	// HourlyWindow is the length of the hourly fixed window.
	HourlyWindow = time.Hour

	// DailyWindow is the length of the daily fixed window.
	DailyWindow = 24 * time.Hour
)

// RateWindow identifies one of the enforced fixed windows.
type RateWindow string

const (
	// RateWindowHourly is the one-hour fixed window.
	RateWindowHourly RateWindow = "hourly"

	// RateWindowDaily is the twenty-four-hour fixed window.
	RateWindowDaily RateWindow = "daily"
)

// ================================================================================
// Security Event Type Constants
// ================================================================================

// SecurityEventType represents the different types of auditable security events.
type SecurityEventType string

const (
	// EventTypeKeyCreated records creation of a new API key.
	EventTypeKeyCreated SecurityEventType = "created"

	// EventTypeKeyDeleted records soft deactivation of an API key.
	EventTypeKeyDeleted SecurityEventType = "deleted"

	// EventTypeKeyUsed records a successful validation.
	EventTypeKeyUsed SecurityEventType = "used"

	// EventTypeInvalidAttempt records a malformed or unknown credential.
	EventTypeInvalidAttempt SecurityEventType = "invalid_attempt"

	// EventTypeRateLimitExceeded records a denied request over quota.
	EventTypeRateLimitExceeded SecurityEventType = "rate_limit_exceeded"

	// EventTypeKeyExpired records an attempt with an expired credential.
	EventTypeKeyExpired SecurityEventType = "expired"

	// EventTypeSuspicious records notable security signals such as scope violations.
	EventTypeSuspicious SecurityEventType = "suspicious"
)

// ================================================================================
// Transport Error Code Constants
// ================================================================================

// ErrorCode is the stable machine-readable code returned to any transport layer.
type ErrorCode string

const (
	// ErrCodeMissingCredential indicates no credential was presented.
	ErrCodeMissingCredential ErrorCode = "MISSING_CREDENTIAL"

	// ErrCodeInvalidFormat indicates the credential failed the syntactic check.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// ErrCodeInvalidCredential indicates the credential resolved to no active key.
	ErrCodeInvalidCredential ErrorCode = "INVALID_CREDENTIAL"

	// ErrCodeCredentialExpired indicates the key exists but is past its expiry.
	ErrCodeCredentialExpired ErrorCode = "CREDENTIAL_EXPIRED"

	// ErrCodeInsufficientScope indicates the key lacks the required scope.
	ErrCodeInsufficientScope ErrorCode = "INSUFFICIENT_SCOPE"

	// ErrCodeRateLimitExceeded indicates the key is over its quota.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// ErrCodeAuthError indicates an internal failure during validation.
	// No internal detail is ever attached to this code.
	ErrCodeAuthError ErrorCode = "AUTH_ERROR"

	// ErrCodeInvalidRequest indicates a malformed request payload.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeInternal indicates an unexpected server-side failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

	// ErrCodeNotFound indicates a missing resource.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// ================================================================================
// Scope Constants
// ================================================================================

const (
	// ScopeNotificationsCreate allows submitting notifications for delivery.
	ScopeNotificationsCreate = "notifications:create"

	// ScopeNotificationsRead allows reading notification delivery state.
	ScopeNotificationsRead = "notifications:read"

	// ScopeAdminKeys allows managing API keys and reading the audit trail.
	ScopeAdminKeys = "admin:keys"
)

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	// HeaderAPIKey is the dedicated credential header, the preferred source.
	HeaderAPIKey = "X-API-Key"

	// HeaderAuthorization is the bearer-style fallback credential source.
	HeaderAuthorization = "Authorization"

	// HeaderRequestID carries the caller-supplied correlation id.
	HeaderRequestID = "X-Request-ID"

	// HeaderForwardedFor carries the proxy chain; the first entry wins.
	HeaderForwardedFor = "X-Forwarded-For"

	// HeaderRealIP is the fallback client address header.
	HeaderRealIP = "X-Real-IP"

	// QueryParamAPIKey is the query-string credential source. It is the least
	// trusted source and its use is flagged in logs.
	QueryParamAPIKey = "api_key"

	// HeaderRateLimitLimit reports the ceiling of the denied window.
	HeaderRateLimitLimit = "X-RateLimit-Limit"

	// HeaderRateLimitRemaining reports the remaining quota.
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"

	// HeaderRateLimitReset reports the unix time the window resets.
	HeaderRateLimitReset = "X-RateLimit-Reset"
)

// ================================================================================
// Counter Store Key Prefix Constants
// ================================================================================

const (
	// CounterKeyPrefixRateLimit is the prefix for rate-limit window counters.
	CounterKeyPrefixRateLimit = "ratelimit"
)

// ================================================================================
// Audit Constants
// ================================================================================

const (
	// DefaultAuditQueueSize bounds the async audit sink channel.
	DefaultAuditQueueSize = 4096

	// DefaultAuditQueryLimit caps unbounded audit reads.
	DefaultAuditQueryLimit = 100

	// MaxAuditQueryLimit is the hard ceiling for audit reads.
	MaxAuditQueryLimit = 1000

	// SuspiciousSummaryCacheTTL bounds staleness of the cached aggregate.
	SuspiciousSummaryCacheTTL = time.Minute
)

// ================================================================================
// Context Key Constants
// ================================================================================

// ContextKey is the type used for request context values.
type ContextKey string

const (
	// ContextKeyAPIKey holds the sanitized projection of the authenticated key.
	ContextKeyAPIKey ContextKey = "api_key_record"

	// ContextKeyRequestID holds the request correlation id.
	ContextKeyRequestID ContextKey = "request_id"
)

// ================================================================================
// Miscellaneous Constants
// ================================================================================

const (
	// UnknownIP is the sentinel recorded when no client address could be derived.
	UnknownIP = "unknown"

	// DefaultCleanupInterval is how often the expiry sweeper runs.
	DefaultCleanupInterval = 15 * time.Minute

	// TableNameAPIKeys is the name of the API key records table.
	TableNameAPIKeys = "api_keys"

	// TableNameSecurityEvents is the name of the append-only audit table.
	TableNameSecurityEvents = "security_events"
)
