/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit_test

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/go-ratelimit/ratelimit"
)

func ExampleSlidingWindowLimiter() {
	limiter := ratelimit.NewSlidingWindowLimiterWithOpts(ratelimit.SlidingWindowLimiterOpts{
		CleanupInterval: time.Minute,
		IdleThreshold:   10 * time.Minute,
	})

	// Start the background reclamation of idle keys. It stops when the context is canceled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = limiter.Run(ctx) }()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Check("user-42", 2, time.Hour)
		if err != nil {
			fmt.Println("check:", err)
			return
		}
		fmt.Println("allowed:", allowed)
	}

	status, err := limiter.Status("user-42", 2, time.Hour)
	if err != nil {
		fmt.Println("status:", err)
		return
	}
	fmt.Println("remaining:", status.Remaining)

	// Output:
	// allowed: true
	// allowed: true
	// allowed: false
	// remaining: 0
}
