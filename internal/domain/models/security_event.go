package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/courierd/courierd/pkg/constants"
)

// SecurityEvent is a single append-only audit trail entry. Once written it is
// never mutated or deleted by this subsystem.
type SecurityEvent struct {
	ID        string                      `gorm:"primaryKey;type:uuid"`
	EventType constants.SecurityEventType `gorm:"not null;index"`
	// KeyID is set when the event resolved to a known key.
	KeyID *string `gorm:"index"`
	// KeyHash is set for attempts that never resolved to a record. It holds
	// the sentinel digest when the credential was malformed.
	KeyHash        *string
	IPAddress      string `gorm:"index"`
	UserAgent      string
	RequestID      string
	OrganizationID *string
	// Metadata is a free-form JSON map of event-specific data.
	Metadata json.RawMessage `gorm:"type:jsonb"`
	Message  string
	// Signature is the HMAC-SHA256 over the event payload, for tamper evidence.
	Signature string
	CreatedAt time.Time `gorm:"index"`
}

// TableName implements the gorm table-name convention.
func (SecurityEvent) TableName() string { return constants.TableNameSecurityEvents }

// NewSecurityEvent creates an event with a fresh id and timestamp.
func NewSecurityEvent(eventType constants.SecurityEventType, message string) *SecurityEvent {
	return &SecurityEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// WithKey sets the key id and organization the event resolved to.
func (e *SecurityEvent) WithKey(keyID string, orgID *string) *SecurityEvent {
	e.KeyID = &keyID
	e.OrganizationID = orgID
	return e
}

// WithKeyHash sets the digest for attempts that never resolved to a record.
func (e *SecurityEvent) WithKeyHash(hash string) *SecurityEvent {
	e.KeyHash = &hash
	return e
}

// WithRequestInfo sets the transport-level context of the attempt.
func (e *SecurityEvent) WithRequestInfo(ip, userAgent, requestID string) *SecurityEvent {
	e.IPAddress = ip
	e.UserAgent = userAgent
	e.RequestID = requestID
	return e
}

// WithMetadata marshals event-specific data into the metadata field.
// Marshal failures leave the field empty rather than failing the event.
func (e *SecurityEvent) WithMetadata(data interface{}) *SecurityEvent {
	if raw, err := json.Marshal(data); err == nil {
		e.Metadata = raw
	}
	return e
}

// SuspiciousActivitySummary is the forensic aggregate over a recent window.
type SuspiciousActivitySummary struct {
	WindowHours       int   `json:"window_hours"`
	InvalidAttempts   int64 `json:"invalid_attempts"`
	RateLimitExceeded int64 `json:"rate_limit_exceeded"`
	ExpiredAttempts   int64 `json:"expired_attempts"`
	UniqueIPCount     int64 `json:"unique_ip_count"`
}
