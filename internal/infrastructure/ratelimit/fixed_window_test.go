package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierd/courierd/internal/infrastructure/ratelimit"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/logger"
)

func newLimiter(t *testing.T) (*ratelimit.FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	counters := ratelimit.NewRedisCounterStore(client, logger.NewNoopLogger())
	return ratelimit.NewFixedWindowLimiter(counters), s
}

func TestFixedWindowLimiter_AllowsUnderLimit(t *testing.T) {
	limiter, _ := newLimiter(t)
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= 5; i++ {
		result, err := limiter.Check(ctx, "key-1", 5, 100, now)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i)
	}

	result, err := limiter.Check(ctx, "key-1", 5, 100, now)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, constants.RateWindowHourly, result.Window)
	assert.Equal(t, int64(6), result.Current)
	assert.Equal(t, int64(5), result.Limit)
	assert.Equal(t, int64(0), result.Remaining())
}

func TestFixedWindowLimiter_EnforcesDailyWindowIndependently(t *testing.T) {
	limiter, _ := newLimiter(t)
	ctx := context.Background()
	now := time.Now()

	// Hourly quota is generous, daily quota is the binding constraint.
	for i := 1; i <= 3; i++ {
		result, err := limiter.Check(ctx, "key-2", 1000, 3, now)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i)
	}

	result, err := limiter.Check(ctx, "key-2", 1000, 3, now)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, constants.RateWindowDaily, result.Window)
	assert.Equal(t, int64(4), result.Current)
	assert.Equal(t, int64(3), result.Limit)
}

func TestFixedWindowLimiter_CountersAreKeyScoped(t *testing.T) {
	limiter, _ := newLimiter(t)
	ctx := context.Background()
	now := time.Now()

	result, err := limiter.Check(ctx, "key-a", 1, 100, now)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	// key-a is now exhausted, key-b is untouched.
	result, err = limiter.Check(ctx, "key-a", 1, 100, now)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	result, err = limiter.Check(ctx, "key-b", 1, 100, now)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestFixedWindowLimiter_NewBucketResetsCount(t *testing.T) {
	limiter, _ := newLimiter(t)
	ctx := context.Background()
	now := time.Unix(3600*100, 0) // aligned to an hourly boundary

	result, err := limiter.Check(ctx, "key-3", 1, 100, now)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Check(ctx, "key-3", 1, 100, now)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// The next hourly bucket starts fresh.
	result, err = limiter.Check(ctx, "key-3", 1, 100, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, int64(1), result.Current)
}

func TestRedisCounterStore_SetsTTLOnFirstIncrement(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	counters := ratelimit.NewRedisCounterStore(client, logger.NewNoopLogger())
	ctx := context.Background()

	count, err := counters.IncrementAndExpire(ctx, "ttl-key", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Greater(t, s.TTL("ttl-key"), time.Duration(0), "first increment must bound the counter")

	ttlAfterFirst := s.TTL("ttl-key")
	count, err = counters.IncrementAndExpire(ctx, "ttl-key", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, ttlAfterFirst, s.TTL("ttl-key"), "later increments must not extend the bound")
}

func TestRedisCounterStore_SurfacesStoreErrors(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	counters := ratelimit.NewRedisCounterStore(client, logger.NewNoopLogger())
	s.Close()

	_, err := counters.IncrementAndExpire(context.Background(), "k", time.Minute)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
