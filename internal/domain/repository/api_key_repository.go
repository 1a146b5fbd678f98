// Package repository defines the persistence interfaces consumed by the
// application layer. Implementations live under internal/infrastructure.
package repository

import (
	"context"
	"time"

	"github.com/courierd/courierd/internal/domain/models"
)

// APIKeyRepository is the abstract record store for API keys. Any persistent
// store with exact-match lookup and simple field updates suffices.
type APIKeyRepository interface {
	// Create persists a new key record.
	Create(ctx context.Context, key *models.APIKey) error

	// FindActiveByHash returns the active record matching the digest, or
	// (nil, nil) when no such record exists. Inactive and absent records are
	// indistinguishable to callers.
	FindActiveByHash(ctx context.Context, keyHash string) (*models.APIKey, error)

	// TouchLastUsed updates the last-used timestamp. Last-writer-wins under
	// concurrent validations is acceptable.
	TouchLastUsed(ctx context.Context, id string, at time.Time) error

	// Deactivate flips the record to inactive. Records are never deleted.
	Deactivate(ctx context.Context, id string) error

	// FindByID returns a record regardless of its active state.
	FindByID(ctx context.Context, id string) (*models.APIKey, error)

	// CleanupExpired flips expired-but-active records to inactive and returns
	// how many were transitioned. Idempotent.
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)

	// ListByOrganization returns the organization's records with the key hash
	// cleared from every row.
	ListByOrganization(ctx context.Context, orgID string) ([]*models.APIKey, error)
}
