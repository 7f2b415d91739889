/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter enforces a rate fixed at construction using a token bucket
// per key (golang.org/x/time/rate). Unused capacity accumulates up to the burst
// size, so short spikes after a quiet period are admitted.
type TokenBucketLimiter struct {
	getBucket func(key string) *rate.Limiter
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
// maxBurst allows that many requests above the sustained rate.
// If maxKeys is 0, a single bucket shared by all keys is used.
func NewTokenBucketLimiter(maxRate Rate, maxBurst, maxKeys int) (*TokenBucketLimiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("%w: max rate must be positive", ErrInvalidArgument)
	}
	if maxBurst < 0 {
		return nil, fmt.Errorf("%w: max burst must not be negative", ErrInvalidArgument)
	}
	tokensLimit := rate.Every(maxRate.Duration / time.Duration(maxRate.Count))
	newBucket := func() *rate.Limiter {
		return rate.NewLimiter(tokensLimit, 1+maxBurst)
	}

	if maxKeys == 0 {
		bucket := newBucket()
		return &TokenBucketLimiter{getBucket: func(_ string) *rate.Limiter { return bucket }}, nil
	}

	store, err := newKeyedLimiterStore[*rate.Limiter](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("new in-memory store for keys: %w", err)
	}
	return &TokenBucketLimiter{
		getBucket: func(key string) *rate.Limiter {
			return store.getOrAdd(key, newBucket)
		},
	}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	now := time.Now()
	rsv := l.getBucket(key).ReserveN(now, 1)
	if !rsv.OK() {
		return false, 0, fmt.Errorf("reserve token for key %q", key)
	}
	if delay := rsv.DelayFrom(now); delay > 0 {
		rsv.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}
