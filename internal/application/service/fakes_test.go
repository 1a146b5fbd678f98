package service

import (
	"context"
	"sync"
	"time"

	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/pkg/constants"
)

// memoryKeyRepo is an in-memory APIKeyRepository for pipeline tests.
type memoryKeyRepo struct {
	mu      sync.Mutex
	keys    map[string]*models.APIKey
	findErr error
	touched []string
	lookups int
}

func newMemoryKeyRepo() *memoryKeyRepo {
	return &memoryKeyRepo{keys: make(map[string]*models.APIKey)}
}

func (r *memoryKeyRepo) Create(_ context.Context, key *models.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	r.keys[key.ID] = key
	return nil
}

func (r *memoryKeyRepo) FindActiveByHash(_ context.Context, keyHash string) (*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, k := range r.keys {
		if k.KeyHash == keyHash && k.IsActive {
			copied := *k
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryKeyRepo) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	if k, ok := r.keys[id]; ok {
		k.LastUsedAt = &at
	}
	return nil
}

func (r *memoryKeyRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[id]; ok {
		k.IsActive = false
	}
	return nil
}

func (r *memoryKeyRepo) FindByID(_ context.Context, id string) (*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[id]; ok {
		copied := *k
		return &copied, nil
	}
	return nil, nil
}

func (r *memoryKeyRepo) CleanupExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, k := range r.keys {
		if k.IsActive && k.IsExpired(now) {
			k.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *memoryKeyRepo) ListByOrganization(_ context.Context, orgID string) ([]*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.APIKey
	for _, k := range r.keys {
		if k.OrganizationID != nil && *k.OrganizationID == orgID {
			copied := *k
			copied.KeyHash = ""
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memoryKeyRepo) touchedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.touched...)
}

func (r *memoryKeyRepo) lookupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

// capturingSink records events synchronously for assertions.
type capturingSink struct {
	mu     sync.Mutex
	events []*models.SecurityEvent
}

func (s *capturingSink) Record(event *models.SecurityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *capturingSink) all() []*models.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.SecurityEvent(nil), s.events...)
}

func (s *capturingSink) ofType(t constants.SecurityEventType) []*models.SecurityEvent {
	var out []*models.SecurityEvent
	for _, e := range s.all() {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// memoryCounterStore is a deterministic in-memory counter.
type memoryCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newMemoryCounterStore() *memoryCounterStore {
	return &memoryCounterStore{counts: make(map[string]int64)}
}

func (c *memoryCounterStore) IncrementAndExpire(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}
