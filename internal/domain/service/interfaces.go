// Package service defines the domain service interfaces of the security core.
package service

import (
	"context"
	"time"

	"github.com/courierd/courierd/internal/domain/models"
)

// CounterStore is the abstract atomic counter used for fixed-window rate
// limiting. Increment and expiry-set must form a single atomic operation so a
// counter can never persist without a bound.
type CounterStore interface {
	// IncrementAndExpire increments the counter and, when this is the first
	// increment of the key, sets its TTL in the same atomic operation.
	// It returns the new count.
	IncrementAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// AuditSink accepts security events for durable recording. Record must never
// block the caller or surface failures; audit durability is explicitly
// decoupled from authorization correctness.
type AuditSink interface {
	// Record enqueues one event. It returns immediately.
	Record(event *models.SecurityEvent)
}

// NotificationDispatcher hands a validated notification to the delivery
// subsystem. Channel delivery itself is outside the security core; courierd
// ships a logging stub and the queue-backed workers plug in here.
type NotificationDispatcher interface {
	// Dispatch enqueues a notification for delivery and returns its id.
	Dispatch(ctx context.Context, n *Notification) (string, error)
}

// Notification is the minimal payload accepted by the protected submit route.
type Notification struct {
	Channel     string            `json:"channel" binding:"required,oneof=email sms push webhook"`
	Recipient   string            `json:"recipient" binding:"required"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body" binding:"required"`
	Metadata    map[string]string `json:"metadata"`
	SubmittedBy string            `json:"-"`
}
