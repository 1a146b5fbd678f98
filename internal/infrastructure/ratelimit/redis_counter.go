// Package ratelimit provides fixed-window rate limiting against Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courierd/courierd/internal/domain/service"
	"github.com/courierd/courierd/pkg/logger"
)

// incrementAndExpireScript increments a counter and, on the first increment of
// the key, sets its TTL. Running both in one script makes the pair atomic: a
// counter can never persist without a bound, even if the client dies between
// the two commands.
const incrementAndExpireScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`

// RedisCounterStore implements service.CounterStore on a Redis client.
type RedisCounterStore struct {
	client redis.UniversalClient
	script *redis.Script
	logger logger.Logger
}

var _ service.CounterStore = (*RedisCounterStore)(nil)

// NewRedisCounterStore creates a counter store on the given client.
func NewRedisCounterStore(client redis.UniversalClient, log logger.Logger) *RedisCounterStore {
	return &RedisCounterStore{
		client: client,
		script: redis.NewScript(incrementAndExpireScript),
		logger: log.WithComponent("counter_store"),
	}
}

// IncrementAndExpire implements service.CounterStore.
func (s *RedisCounterStore) IncrementAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	result, err := s.script.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, fmt.Errorf("increment counter %q: %w", key, err)
	}

	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("increment counter %q: unexpected script result %T", key, result)
	}
	return count, nil
}
