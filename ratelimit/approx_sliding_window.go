/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"
)

// ApproxSlidingWindowLimiter enforces a rate fixed at construction using the
// two-bucket sliding window approximation. It keeps O(1) state per key, which
// makes it preferable to SlidingWindowLimiter for high rates and high key
// cardinality, at the price of approximate window boundaries and no exact
// remaining/reset reporting.
type ApproxSlidingWindowLimiter struct {
	maxRate   Rate
	getWindow func(key string) *slidingwindow.Limiter
}

// NewApproxSlidingWindowLimiter creates a new approximate sliding window rate limiter.
// If maxKeys is 0, a single window shared by all keys is used.
func NewApproxSlidingWindowLimiter(maxRate Rate, maxKeys int) (*ApproxSlidingWindowLimiter, error) {
	newWindow := func() *slidingwindow.Limiter {
		lim, _ := slidingwindow.NewLimiter(
			maxRate.Duration, int64(maxRate.Count), func() (slidingwindow.Window, slidingwindow.StopFunc) {
				return slidingwindow.NewLocalWindow()
			})
		return lim
	}

	if maxKeys == 0 {
		lim := newWindow()
		return &ApproxSlidingWindowLimiter{
			maxRate:   maxRate,
			getWindow: func(_ string) *slidingwindow.Limiter { return lim },
		}, nil
	}

	store, err := newKeyedLimiterStore[*slidingwindow.Limiter](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("new in-memory store for keys: %w", err)
	}
	return &ApproxSlidingWindowLimiter{
		maxRate: maxRate,
		getWindow: func(key string) *slidingwindow.Limiter {
			return store.getOrAdd(key, newWindow)
		},
	}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
func (l *ApproxSlidingWindowLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	if l.getWindow(key).Allow() {
		return true, 0, nil
	}
	now := time.Now()
	retryAfter = now.Truncate(l.maxRate.Duration).Add(l.maxRate.Duration).Sub(now)
	return false, retryAfter, nil
}
