/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SlidingWindowLimiterTestSuite contains tests for SlidingWindowLimiter.
type SlidingWindowLimiterTestSuite struct {
	suite.Suite
	clock   *fakeClock
	limiter *SlidingWindowLimiter
}

func TestSlidingWindowLimiter(t *testing.T) {
	suite.Run(t, new(SlidingWindowLimiterTestSuite))
}

func (ts *SlidingWindowLimiterTestSuite) SetupTest() {
	ts.clock = newFakeClock()
	ts.limiter = NewSlidingWindowLimiter()
	ts.limiter.timeNow = ts.clock.Now
}

func (ts *SlidingWindowLimiterTestSuite) TestMonotonicAdmission() {
	const limit = 5
	for i := 0; i < limit; i++ {
		allowed, err := ts.limiter.Check("user-1", limit, time.Minute)
		ts.NoError(err)
		ts.True(allowed, "attempt %d should be admitted", i+1)
	}
	allowed, err := ts.limiter.Check("user-1", limit, time.Minute)
	ts.NoError(err)
	ts.False(allowed, "attempt above the limit should be rejected")
}

func (ts *SlidingWindowLimiterTestSuite) TestWindowSliding() {
	const limit = 3
	window := 2 * time.Second

	for i := 0; i < limit; i++ {
		allowed, err := ts.limiter.Check("user-1", limit, window)
		ts.NoError(err)
		ts.True(allowed)
	}
	allowed, err := ts.limiter.Check("user-1", limit, window)
	ts.NoError(err)
	ts.False(allowed)

	// After the window passes, all recorded attempts (the rejected one included) expire.
	ts.clock.Advance(2100 * time.Millisecond)
	allowed, err = ts.limiter.Check("user-1", limit, window)
	ts.NoError(err)
	ts.True(allowed)
}

func (ts *SlidingWindowLimiterTestSuite) TestStatusDoesNotConsumeQuota() {
	const limit = 3

	for i := 0; i < 2; i++ {
		allowed, err := ts.limiter.Check("user-1", limit, time.Minute)
		ts.NoError(err)
		ts.True(allowed)
	}

	var prevSt Status
	for i := 0; i < 10; i++ {
		st, err := ts.limiter.Status("user-1", limit, time.Minute)
		ts.NoError(err)
		ts.Equal(limit, st.Limit)
		ts.Equal(1, st.Remaining)
		ts.Equal(ts.clock.Now().Add(time.Minute), st.ResetAt, "reset is when the oldest attempt expires")
		if i > 0 {
			ts.Equal(prevSt, st)
		}
		prevSt = st
	}

	// The quota is still available after all the Status calls.
	allowed, err := ts.limiter.Check("user-1", limit, time.Minute)
	ts.NoError(err)
	ts.True(allowed)
}

func (ts *SlidingWindowLimiterTestSuite) TestStatusAbsentKey() {
	st, err := ts.limiter.Status("never-seen", 10, time.Minute)
	ts.NoError(err)
	ts.Equal(Status{Limit: 10, Remaining: 10, ResetAt: ts.clock.Now().Add(time.Minute)}, st)
	ts.Equal(0, ts.limiter.TrackedKeysAmount(), "Status must not create state for an absent key")
}

func (ts *SlidingWindowLimiterTestSuite) TestStatusResetAtTracksOldestAttempt() {
	const limit = 2
	window := 10 * time.Second

	allowed, err := ts.limiter.Check("user-1", limit, window)
	ts.NoError(err)
	ts.True(allowed)
	firstAt := ts.clock.Now()

	ts.clock.Advance(3 * time.Second)
	allowed, err = ts.limiter.Check("user-1", limit, window)
	ts.NoError(err)
	ts.True(allowed)

	st, err := ts.limiter.Status("user-1", limit, window)
	ts.NoError(err)
	ts.Equal(0, st.Remaining)
	ts.Equal(firstAt.Add(window), st.ResetAt)

	// Once the oldest attempt expires, the reset moves to the next one.
	ts.clock.Advance(8 * time.Second)
	st, err = ts.limiter.Status("user-1", limit, window)
	ts.NoError(err)
	ts.Equal(1, st.Remaining)
	ts.Equal(firstAt.Add(3*time.Second+window), st.ResetAt)
}

func (ts *SlidingWindowLimiterTestSuite) TestIdempotentPruning() {
	const limit = 4
	window := time.Second

	for i := 0; i < limit+2; i++ {
		_, err := ts.limiter.Check("user-1", limit, window)
		ts.NoError(err)
	}
	ts.clock.Advance(1500 * time.Millisecond)

	for i := 0; i < 5; i++ {
		st, err := ts.limiter.Status("user-1", limit, window)
		ts.NoError(err)
		ts.Equal(limit, st.Remaining)
	}

	ts.limiter.mu.RLock()
	ws := ts.limiter.entries["user-1"]
	ts.limiter.mu.RUnlock()
	ts.Require().NotNil(ws)
	ws.mu.Lock()
	ts.Empty(ws.timestamps, "repeated pruning must converge to an empty history")
	ws.mu.Unlock()
}

func (ts *SlidingWindowLimiterTestSuite) TestKeyIsolation() {
	allowed, err := ts.limiter.Check("a", 1, time.Minute)
	ts.NoError(err)
	ts.True(allowed)
	allowed, err = ts.limiter.Check("a", 1, time.Minute)
	ts.NoError(err)
	ts.False(allowed)

	allowed, err = ts.limiter.Check("b", 1, time.Minute)
	ts.NoError(err)
	ts.True(allowed, "exhausted quota of one key must not affect another key")
}

func (ts *SlidingWindowLimiterTestSuite) TestRejectedAttemptsOccupyWindow() {
	window := 10 * time.Second

	allowed, err := ts.limiter.Check("user-1", 1, window)
	ts.NoError(err)
	ts.True(allowed)

	// The rejected attempt is recorded too, so a retry half a window later is
	// still rejected: retries cannot reset the window.
	allowed, err = ts.limiter.Check("user-1", 1, window)
	ts.NoError(err)
	ts.False(allowed)

	ts.clock.Advance(6 * time.Second)
	allowed, err = ts.limiter.Check("user-1", 1, window)
	ts.NoError(err)
	ts.False(allowed)

	ts.clock.Advance(5 * time.Second)
	allowed, err = ts.limiter.Check("user-1", 1, window)
	ts.NoError(err)
	ts.True(allowed)
}

func (ts *SlidingWindowLimiterTestSuite) TestDifferentQuotasForSameKey() {
	// The limiter stores occurrence history only, so the same key may be
	// checked against different quotas.
	for i := 0; i < 3; i++ {
		_, err := ts.limiter.Check("user-1", 10, time.Minute)
		ts.NoError(err)
	}
	st, err := ts.limiter.Status("user-1", 10, time.Minute)
	ts.NoError(err)
	ts.Equal(7, st.Remaining)

	st, err = ts.limiter.Status("user-1", 2, time.Minute)
	ts.NoError(err)
	ts.Equal(0, st.Remaining)
}

func (ts *SlidingWindowLimiterTestSuite) TestInvalidArguments() {
	_, err := ts.limiter.Check("", 1, time.Minute)
	ts.ErrorIs(err, ErrInvalidArgument)

	_, err = ts.limiter.Check("user-1", 0, time.Minute)
	ts.ErrorIs(err, ErrInvalidArgument)

	_, err = ts.limiter.Check("user-1", -1, time.Minute)
	ts.ErrorIs(err, ErrInvalidArgument)

	_, err = ts.limiter.Check("user-1", 1, 0)
	ts.ErrorIs(err, ErrInvalidArgument)

	_, err = ts.limiter.Status("user-1", 1, -time.Second)
	ts.ErrorIs(err, ErrInvalidArgument)

	ts.Equal(0, ts.limiter.TrackedKeysAmount(), "contract violations must not create state")
}

func (ts *SlidingWindowLimiterTestSuite) TestConcurrentAdmission() {
	const limit = 20
	const extra = 30
	const concurrency = limit + extra

	var admitted, rejected atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			allowed, err := ts.limiter.Check("user-1", limit, time.Minute)
			ts.NoError(err)
			if allowed {
				admitted.Inc()
			} else {
				rejected.Inc()
			}
		}()
	}
	close(start)
	wg.Wait()

	ts.Equal(int32(limit), admitted.Load())
	ts.Equal(int32(extra), rejected.Load())
}

func (ts *SlidingWindowLimiterTestSuite) TestConcurrentDifferentKeys() {
	const keys = 8
	const perKey = 10

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < keys; i++ {
		key := string(rune('a' + i))
		for j := 0; j < perKey; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				allowed, err := ts.limiter.Check(key, perKey, time.Minute)
				ts.NoError(err)
				if allowed {
					admitted.Inc()
				}
			}()
		}
	}
	wg.Wait()

	ts.Equal(int32(keys*perKey), admitted.Load())
	ts.Equal(keys, ts.limiter.TrackedKeysAmount())
}

func TestSlidingWindowLimiterConcurrentChecksKeepAttemptOrder(t *testing.T) {
	// Uses the real clock: the instant of each attempt must be taken while the
	// key's state is locked, otherwise contending calls may record instants out
	// of order and pruning would miss a stale instant stuck behind a newer one.
	limiter := NewSlidingWindowLimiter()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, _ = limiter.Check("shared", 10, 50*time.Millisecond)
			}
		}()
	}
	wg.Wait()

	limiter.mu.RLock()
	ws := limiter.entries["shared"]
	limiter.mu.RUnlock()
	if ws == nil {
		t.Fatal("no state recorded for the key")
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for i := 1; i < len(ws.timestamps); i++ {
		if ws.timestamps[i].Before(ws.timestamps[i-1]) {
			t.Fatalf("attempt instants out of order at %d: %s after %s",
				i, ws.timestamps[i], ws.timestamps[i-1])
		}
	}
}

func (ts *SlidingWindowLimiterTestSuite) TestWithRateAdapter() {
	limiter := ts.limiter.WithRate(Rate{Count: 2, Duration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allow, retryAfter, err := limiter.Allow(ctx, "user-1")
		ts.NoError(err)
		ts.True(allow)
		ts.Equal(time.Duration(0), retryAfter)
	}

	allow, retryAfter, err := limiter.Allow(ctx, "user-1")
	ts.NoError(err)
	ts.False(allow)
	ts.Equal(time.Minute, retryAfter, "all attempts are recorded at the same fake instant")

	_, _, err = limiter.Allow(ctx, "")
	ts.True(errors.Is(err, ErrInvalidArgument))
}
