// Package dto defines the request and response shapes exchanged between the
// transport layer and the application services. DTOs never expose the key
// hash or the internal persistence record.
package dto

import (
	"time"

	"github.com/courierd/courierd/internal/domain/models"
)

// CreateKeyRequest is the payload for provisioning a new API key.
type CreateKeyRequest struct {
	Name            string     `json:"name" binding:"required,min=1,max=128"`
	Scopes          []string   `json:"scopes" binding:"required,min=1"`
	RateLimitHourly *int64     `json:"rate_limit_hourly" binding:"omitempty,min=1"`
	RateLimitDaily  *int64     `json:"rate_limit_daily" binding:"omitempty,min=1"`
	ExpiresAt       *time.Time `json:"expires_at"`
	OrganizationID  *string    `json:"organization_id"`
	CreatedByUserID *string    `json:"created_by_user_id"`
}

// CreateKeyResponse carries the plaintext credential. It is returned exactly
// once; the secret is not recoverable afterwards.
type CreateKeyResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	APIKey    string           `json:"api_key"`
	Scopes    []string         `json:"scopes"`
	RateLimit models.RateLimit `json:"rate_limit"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// KeyView is the sanitized projection of a key record safe to attach to a
// request context or return from listings. It deliberately omits the hash,
// the active flag, and persistence timestamps.
type KeyView struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Scopes         []string         `json:"scopes"`
	OrganizationID *string          `json:"organization_id,omitempty"`
	RateLimit      models.RateLimit `json:"rate_limit"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
	LastUsedAt     *time.Time       `json:"last_used_at,omitempty"`
}

// NewKeyView projects a record into its sanitized view.
func NewKeyView(key *models.APIKey) *KeyView {
	if key == nil {
		return nil
	}
	scopes := make([]string, len(key.Scopes))
	copy(scopes, key.Scopes)
	return &KeyView{
		ID:             key.ID,
		Name:           key.Name,
		Scopes:         scopes,
		OrganizationID: key.OrganizationID,
		RateLimit: models.RateLimit{
			Hourly: key.RateLimitHourly,
			Daily:  key.RateLimitDaily,
		},
		ExpiresAt:  key.ExpiresAt,
		LastUsedAt: key.LastUsedAt,
	}
}

// HasScope reports whether the view carries the given capability.
func (v *KeyView) HasScope(scope string) bool {
	for _, s := range v.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// CleanupResponse reports how many expired keys a sweep deactivated.
type CleanupResponse struct {
	Deactivated int64 `json:"deactivated"`
}
