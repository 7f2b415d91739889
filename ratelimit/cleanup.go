/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-ratelimit/log"
)

// Run runs the idle keys cleanup loop until ctx is canceled.
// Each cleanup interval it removes the keys whose attempts are all older than
// the idle threshold (see RemoveIdleKeys). A failed pass never terminates the
// loop: the error is logged and the next pass is delayed with exponential
// backoff, returning to the regular interval after the first successful pass.
//
// Run returns nil after ctx cancellation. It is intended to be started in its
// own goroutine for the lifetime of the limiter.
func (l *SlidingWindowLimiter) Run(ctx context.Context) error {
	l.logger.Infof("running idle keys cleanup worker (interval=%s, idleThreshold=%s)...",
		l.cleanupInterval, l.idleThreshold)

	bOff := backoff.NewExponentialBackOff()
	bOff.InitialInterval = l.cleanupInterval
	bOff.MaxInterval = l.cleanupInterval * 10
	bOff.MaxElapsedTime = 0 // Skipped passes only delay reclamation, never give up.
	bOff.Reset()

	timer := time.NewTimer(l.cleanupInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("idle keys cleanup worker stopped")
			return nil
		case <-timer.C:
		}

		nextDelay := l.cleanupInterval
		if err := l.runCleanupPass(); err != nil {
			l.logger.Error("idle keys cleanup pass failed", log.Error(err))
			nextDelay = bOff.NextBackOff()
		} else {
			bOff.Reset()
		}
		timer.Reset(nextDelay)
	}
}

func (l *SlidingWindowLimiter) runCleanupPass() (err error) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			err = fmt.Errorf("panic: %+v, stack: %s", p, stack)
		}
	}()

	if removed := l.RemoveIdleKeys(); removed > 0 {
		l.logger.Infof("removed state of %d idle keys", removed)
	}
	return nil
}
