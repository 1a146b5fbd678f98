// Package models contains the domain entities of the courierd security core.
package models

import (
	"time"

	"github.com/courierd/courierd/pkg/constants"
)

// APIKey is the persisted record of a credential. The plaintext secret is
// returned to the creator exactly once at creation time; KeyHash is the only
// form ever stored. Deactivated records are kept forever so audit entries that
// reference them by id stay resolvable.
type APIKey struct {
	// ID is the opaque identifier of the key.
	ID string `gorm:"primaryKey;type:uuid"`
	// KeyHash is the hex SHA-256 digest of the plaintext credential, unique.
	KeyHash string `gorm:"uniqueIndex;not null"`
	// Name is the human-readable label chosen at creation.
	Name string `gorm:"not null"`
	// Scopes is the set of capability strings this key holds.
	Scopes []string `gorm:"serializer:json"`
	// RateLimitHourly is the request ceiling per hourly window.
	RateLimitHourly int64 `gorm:"not null"`
	// RateLimitDaily is the request ceiling per daily window.
	RateLimitDaily int64 `gorm:"not null"`
	// IsActive is false once the key has been soft-deactivated or swept.
	IsActive bool `gorm:"not null;default:true;index"`
	// LastUsedAt is touched best-effort on every successful validation.
	LastUsedAt *time.Time
	// ExpiresAt, when set, makes the key behave as nonexistent once passed.
	ExpiresAt *time.Time
	// OrganizationID groups keys for listing, when set.
	OrganizationID *string `gorm:"index"`
	// CreatedByUserID records the administrative creator, when known.
	CreatedByUserID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName implements the gorm table-name convention.
func (APIKey) TableName() string { return constants.TableNameAPIKeys }

// IsExpired reports whether the key is past its expiry at the given instant.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// HasScope reports whether the key holds the given capability.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// RateLimit is the pair of window ceilings configured on a key.
type RateLimit struct {
	Hourly int64 `json:"hourly"`
	Daily  int64 `json:"daily"`
}
