/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApproxSlidingWindowLimiterAllow(t *testing.T) {
	limiter, err := NewApproxSlidingWindowLimiter(Rate{Count: 2, Duration: time.Second}, 100)
	require.NoError(t, err)

	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allow, retryAfter, err := limiter.Allow(ctx, "test-key")
		require.NoError(t, err)
		require.True(t, allow)
		require.Equal(t, time.Duration(0), retryAfter)
	}

	allow, retryAfter, err := limiter.Allow(ctx, "test-key")
	require.NoError(t, err)
	require.False(t, allow)
	require.Greater(t, retryAfter, time.Duration(0))
	require.LessOrEqual(t, retryAfter, time.Second)

	allow, _, err = limiter.Allow(ctx, "other-key")
	require.NoError(t, err)
	require.True(t, allow)
}

func TestApproxSlidingWindowLimiterSharedWindow(t *testing.T) {
	limiter, err := NewApproxSlidingWindowLimiter(Rate{Count: 1, Duration: time.Minute}, 0)
	require.NoError(t, err)

	ctx := context.Background()
	allow, _, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	require.True(t, allow)

	allow, _, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)
	require.False(t, allow)
}
