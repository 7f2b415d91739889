/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Limiter interface defines the rate limiting contract for limiters with a quota fixed at construction.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// ErrInvalidArgument is returned (wrapped) when a caller violates the argument contract:
// empty key, non-positive limit, or non-positive window.
// A rejected attempt is not an error; Check reports it as a false result.
var ErrInvalidArgument = errors.New("invalid argument")

func validateQuotaArgs(key string, limit int, window time.Duration) error {
	if key == "" {
		return fmt.Errorf("%w: key must not be empty", ErrInvalidArgument)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}
	if window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidArgument, window)
	}
	return nil
}
