/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

// LeakyBucketLimiter enforces a rate fixed at construction with GCRA
// (Generic Cell Rate Algorithm): attempts drain at the sustained rate, and up
// to maxBurst attempts above it are admitted. Unlike SlidingWindowLimiter it
// keeps a single theoretical-arrival instant per key instead of the attempt
// history, so it cannot report remaining quota, only a retry-after estimate.
type LeakyBucketLimiter struct {
	gcra *throttled.GCRARateLimiterCtx
}

// NewLeakyBucketLimiter creates a new leaky bucket rate limiter.
// maxKeys bounds the number of keys tracked in memory.
func NewLeakyBucketLimiter(maxRate Rate, maxBurst, maxKeys int) (*LeakyBucketLimiter, error) {
	store, err := memstore.NewCtx(maxKeys)
	if err != nil {
		return nil, fmt.Errorf("create memory store for %d keys: %w", maxKeys, err)
	}
	gcra, err := throttled.NewGCRARateLimiterCtx(store, throttled.RateQuota{
		MaxRate:  throttled.PerDuration(maxRate.Count, maxRate.Duration),
		MaxBurst: maxBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("create GCRA limiter: %w", err)
	}
	return &LeakyBucketLimiter{gcra: gcra}, nil
}

// Allow reports whether one more attempt for the key fits the configured rate.
// For a rejected attempt retryAfter tells how long to wait before the next one may fit.
func (l *LeakyBucketLimiter) Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	limited, res, err := l.gcra.RateLimitCtx(ctx, key, 1)
	if err != nil {
		return false, 0, err
	}
	return !limited, res.RetryAfter, nil
}
