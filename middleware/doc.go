/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package middleware provides a net/http middleware that limits the rate of HTTP requests
// using ratelimit.SlidingWindowLimiter. Admitted requests get X-RateLimit-* headers,
// rejected ones receive 429 with a Retry-After header and a JSON error in the response body.
package middleware
