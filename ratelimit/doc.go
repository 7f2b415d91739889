/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides in-process, per-key rate limiting primitives
// for admission control of incoming operations.
//
// The central type is SlidingWindowLimiter: it keeps, per opaque key, the
// instants of recent attempts and admits a new attempt if the number of
// attempts within the caller-supplied window does not exceed the
// caller-supplied limit. The window is a true sliding window (relative to
// "now"), not fixed buckets, so Status can report the exact moment capacity
// frees up. Quota parameters are passed on every call, which lets callers
// apply different quotas to the same key; the limiter tracks occurrence
// history only. State of keys that went idle is reclaimed by a periodic
// cleanup worker (see SlidingWindowLimiter.Run).
//
// For cases where the quota is fixed upfront and per-attempt bookkeeping is
// too costly, the package also provides fixed-rate limiters behind the
// Limiter interface: LeakyBucketLimiter (GCRA), ApproxSlidingWindowLimiter,
// and TokenBucketLimiter.
package ratelimit
