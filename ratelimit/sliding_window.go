/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/acronis/go-ratelimit/log"
)

// Default parameters of the idle keys cleanup.
const (
	DefaultCleanupInterval = 5 * time.Minute
	DefaultIdleThreshold   = time.Hour
)

// Status describes the current quota state of a key as reported by SlidingWindowLimiter.Status.
type Status struct {
	// Limit is the caller-supplied quota.
	Limit int

	// Remaining is the number of attempts that may still be admitted within the current window.
	Remaining int

	// ResetAt is the instant the oldest recorded attempt falls out of the window,
	// i.e. when capacity frees up. For a key with no recorded attempts it is now + window.
	ResetAt time.Time
}

// SlidingWindowLimiter admits or rejects attempts per key based on the exact history
// of attempt instants within a sliding time window. The quota (limit and window) is
// supplied on every call; the limiter stores occurrence history only.
//
// All methods are safe for concurrent use. Calls for the same key are serialized,
// calls for different keys do not block each other.
type SlidingWindowLimiter struct {
	cleanupInterval time.Duration
	idleThreshold   time.Duration
	logger          log.FieldLogger
	metrics         MetricsCollector
	timeNow         func() time.Time

	mu      sync.RWMutex
	entries map[string]*windowState
}

// windowState holds the recorded attempt instants of a single key.
// timestamps are kept in non-decreasing insertion order; stale instants
// are pruned lazily on access, not continuously.
type windowState struct {
	mu         sync.Mutex
	timestamps []time.Time
	removed    bool
}

// SlidingWindowLimiterOpts contains optional parameters for constructing SlidingWindowLimiter.
type SlidingWindowLimiterOpts struct {
	// CleanupInterval is the period of the idle keys cleanup (see Run). Default is 5 minutes.
	CleanupInterval time.Duration

	// IdleThreshold determines for how long all attempts of a key must be stale
	// before the cleanup removes the key's state. Default is 1 hour.
	IdleThreshold time.Duration

	// Logger is used by the cleanup worker. Logging is disabled if nil.
	Logger log.FieldLogger

	// MetricsCollector collects the limiter's metrics. Metrics are disabled if nil.
	MetricsCollector MetricsCollector
}

// NewSlidingWindowLimiter creates a new SlidingWindowLimiter with default parameters.
func NewSlidingWindowLimiter() *SlidingWindowLimiter {
	return NewSlidingWindowLimiterWithOpts(SlidingWindowLimiterOpts{})
}

// NewSlidingWindowLimiterWithOpts creates a new SlidingWindowLimiter
// with an ability to specify different optional parameters.
func NewSlidingWindowLimiterWithOpts(opts SlidingWindowLimiterOpts) *SlidingWindowLimiter {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = DefaultIdleThreshold
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	return &SlidingWindowLimiter{
		cleanupInterval: opts.CleanupInterval,
		idleThreshold:   opts.IdleThreshold,
		logger:          opts.Logger,
		metrics:         opts.MetricsCollector,
		timeNow:         time.Now,
		entries:         make(map[string]*windowState),
	}
}

// Check records the current instant as a new attempt for the key and reports
// whether the attempt is admitted under the passed quota.
//
// The attempt is recorded even when it is rejected, so rejected retries keep
// occupying the window instead of resetting it.
func (l *SlidingWindowLimiter) Check(key string, limit int, window time.Duration) (bool, error) {
	if err := validateQuotaArgs(key, limit, window); err != nil {
		return false, err
	}
	for {
		ws := l.acquireWindowState(key)
		ws.mu.Lock()
		if ws.removed {
			// The cleanup won the race and deleted the entry from the map; retry on a fresh one.
			ws.mu.Unlock()
			continue
		}
		// The clock is read under the entry's lock so that contending calls
		// append their instants in non-decreasing order, which prune relies on.
		now := l.timeNow()
		ws.timestamps = append(ws.timestamps, now)
		ws.prune(now.Add(-window))
		count := len(ws.timestamps)
		ws.mu.Unlock()
		return count <= limit, nil
	}
}

// Status reports the current quota state of the key without recording an attempt.
// Stale attempts are pruned, but an absent key gets no state allocated.
func (l *SlidingWindowLimiter) Status(key string, limit int, window time.Duration) (Status, error) {
	if err := validateQuotaArgs(key, limit, window); err != nil {
		return Status{}, err
	}
	now := l.timeNow()

	l.mu.RLock()
	ws := l.entries[key]
	l.mu.RUnlock()
	if ws == nil {
		return Status{Limit: limit, Remaining: limit, ResetAt: now.Add(window)}, nil
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.removed {
		return Status{Limit: limit, Remaining: limit, ResetAt: now.Add(window)}, nil
	}
	ws.prune(now.Add(-window))
	count := len(ws.timestamps)

	st := Status{Limit: limit, Remaining: limit - count, ResetAt: now.Add(window)}
	if st.Remaining < 0 {
		st.Remaining = 0
	}
	if count > 0 {
		st.ResetAt = ws.timestamps[0].Add(window)
	}
	return st, nil
}

// RemoveIdleKeys performs one synchronous cleanup pass: every key whose attempts are
// all older than the idle threshold is removed from the limiter's state.
// Returns the number of removed keys.
//
// Run calls it periodically; tests and hosts driving their own scheduler may call it directly.
func (l *SlidingWindowLimiter) RemoveIdleKeys() int {
	idleBefore := l.timeNow().Add(-l.idleThreshold)

	l.mu.RLock()
	keys := make([]string, 0, len(l.entries))
	for key := range l.entries {
		keys = append(keys, key)
	}
	l.mu.RUnlock()

	removed := 0
	for _, key := range keys {
		l.mu.Lock()
		ws := l.entries[key]
		if ws == nil {
			l.mu.Unlock()
			continue
		}
		ws.mu.Lock()
		// Idleness is re-checked under the entry's lock right before the delete,
		// otherwise an attempt recorded between the scan and the delete would be lost.
		if len(ws.timestamps) == 0 || ws.timestamps[len(ws.timestamps)-1].Before(idleBefore) {
			ws.removed = true
			delete(l.entries, key)
			removed++
		}
		ws.mu.Unlock()
		l.mu.Unlock()
	}

	l.metrics.AddRemovedIdleKeys(removed)
	l.metrics.SetTrackedKeysAmount(l.TrackedKeysAmount())
	return removed
}

// TrackedKeysAmount returns the current number of keys with recorded state.
func (l *SlidingWindowLimiter) TrackedKeysAmount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// WithRate adapts the limiter to the Limiter interface with the quota fixed at maxRate.
func (l *SlidingWindowLimiter) WithRate(maxRate Rate) Limiter {
	return &slidingWindowRateAdapter{limiter: l, maxRate: maxRate}
}

func (l *SlidingWindowLimiter) acquireWindowState(key string) *windowState {
	l.mu.RLock()
	ws := l.entries[key]
	l.mu.RUnlock()
	if ws != nil {
		return ws
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if ws = l.entries[key]; ws == nil {
		ws = &windowState{}
		l.entries[key] = ws
	}
	return ws
}

// prune drops the instants older than cutoff. Must be called under ws.mu.
func (ws *windowState) prune(cutoff time.Time) {
	keepFrom := 0
	for keepFrom < len(ws.timestamps) && ws.timestamps[keepFrom].Before(cutoff) {
		keepFrom++
	}
	if keepFrom == 0 {
		return
	}
	n := copy(ws.timestamps, ws.timestamps[keepFrom:])
	ws.timestamps = ws.timestamps[:n]
}

type slidingWindowRateAdapter struct {
	limiter *SlidingWindowLimiter
	maxRate Rate
}

// Allow checks if the request should be allowed based on the rate limit.
func (a *slidingWindowRateAdapter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	allowed, err := a.limiter.Check(key, a.maxRate.Count, a.maxRate.Duration)
	if err != nil {
		return false, 0, err
	}
	if allowed {
		return true, 0, nil
	}
	st, err := a.limiter.Status(key, a.maxRate.Count, a.maxRate.Duration)
	if err != nil {
		return false, 0, err
	}
	if retryAfter = st.ResetAt.Sub(a.limiter.timeNow()); retryAfter < 0 {
		retryAfter = 0
	}
	return false, retryAfter, nil
}
