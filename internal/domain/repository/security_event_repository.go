package repository

import (
	"context"
	"time"

	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/pkg/constants"
)

// SecurityEventRepository is the append-only audit store. Events are written
// once and queried for operational and forensic use; nothing updates or
// deletes them.
type SecurityEventRepository interface {
	// Append persists one immutable event.
	Append(ctx context.Context, event *models.SecurityEvent) error

	// Recent returns the newest events, optionally filtered by type.
	Recent(ctx context.Context, limit int, eventTypes []constants.SecurityEventType) ([]*models.SecurityEvent, error)

	// ByKey returns the newest events referencing the given key id.
	ByKey(ctx context.Context, keyID string, limit int) ([]*models.SecurityEvent, error)

	// SuspiciousActivitySummary aggregates failure signals since the cutoff.
	SuspiciousActivitySummary(ctx context.Context, since time.Time) (*models.SuspiciousActivitySummary, error)
}
