package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/courierd/courierd/internal/domain/service"
	"github.com/courierd/courierd/pkg/constants"
)

// WindowResult is the outcome of one window check.
type WindowResult struct {
	// Window names the checked window (hourly or daily).
	Window constants.RateWindow
	// Allowed is false once Current exceeds Limit.
	Allowed bool
	// Current is the counter value after this request's increment.
	Current int64
	// Limit is the configured ceiling for the window.
	Limit int64
	// WindowLength is the fixed window duration.
	WindowLength time.Duration
	// ResetAt is when the current bucket's counter expires.
	ResetAt time.Time
}

// Remaining returns the quota left in the window, never negative.
func (r *WindowResult) Remaining() int64 {
	remaining := r.Limit - r.Current
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FixedWindowLimiter counts requests in aligned, non-overlapping buckets of
// floor(now/window). Both the hourly and the daily window must pass for a
// request to be allowed.
//
// Known limitation, accepted: fixed windows admit up to ~2x the nominal limit
// across a window boundary.
type FixedWindowLimiter struct {
	counters  service.CounterStore
	keyPrefix string
}

// NewFixedWindowLimiter creates a limiter on the given counter store.
func NewFixedWindowLimiter(counters service.CounterStore) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		counters:  counters,
		keyPrefix: constants.CounterKeyPrefixRateLimit,
	}
}

// Check increments both window counters for the key and reports the first
// exceeded window, or the hourly result when everything passes. Counter store
// errors are returned untouched; the caller decides the failure policy.
func (l *FixedWindowLimiter) Check(ctx context.Context, keyID string, hourlyLimit, dailyLimit int64, now time.Time) (*WindowResult, error) {
	hourly, err := l.checkWindow(ctx, keyID, constants.RateWindowHourly, constants.HourlyWindow, hourlyLimit, now)
	if err != nil {
		return nil, err
	}

	daily, err := l.checkWindow(ctx, keyID, constants.RateWindowDaily, constants.DailyWindow, dailyLimit, now)
	if err != nil {
		return nil, err
	}

	if !hourly.Allowed {
		return hourly, nil
	}
	if !daily.Allowed {
		return daily, nil
	}
	return hourly, nil
}

func (l *FixedWindowLimiter) checkWindow(ctx context.Context, keyID string, window constants.RateWindow, length time.Duration, limit int64, now time.Time) (*WindowResult, error) {
	bucket := now.UnixMilli() / length.Milliseconds()
	counterKey := fmt.Sprintf("%s:%s:%s:%d", l.keyPrefix, keyID, window, bucket)

	current, err := l.counters.IncrementAndExpire(ctx, counterKey, length)
	if err != nil {
		return nil, err
	}

	return &WindowResult{
		Window:       window,
		Allowed:      current <= limit,
		Current:      current,
		Limit:        limit,
		WindowLength: length,
		ResetAt:      time.UnixMilli((bucket + 1) * length.Milliseconds()),
	}, nil
}
