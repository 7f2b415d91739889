/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/acronis/go-ratelimit/log"
	"github.com/acronis/go-ratelimit/ratelimit"
)

// HTTP headers that are set by the RateLimit middleware.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
	HeaderRequestID          = "X-Request-ID"
)

// RateLimitLogFieldKey it is the name of the logged field that contains a key for the requests rate limiter.
const RateLimitLogFieldKey = "rate_limit_key"

// globalRateLimitKey is the key under which all requests are counted together
// when no GetKey function is configured (or it yields an empty key).
// The limiter itself requires a non-empty key.
const globalRateLimitKey = "_global"

const (
	requestIDLogFieldKey = "request_id"
	userAgentLogFieldKey = "user_agent"
)

// Rate describes the frequency of requests.
type Rate = ratelimit.Rate

// RateLimitParams contains data that relates to the rate limiting procedure
// and could be used for rejecting or handling an occurred error.
type RateLimitParams struct {
	ErrDomain          string
	ResponseStatusCode int
	GetRetryAfter      RateLimitGetRetryAfterFunc
	Key                string
	RequestID          string
	Status             ratelimit.Status
}

// RateLimitGetRetryAfterFunc is a function that is called to get a value for Retry-After response HTTP header
// when the rate limit is exceeded. estimatedTime is the time until the oldest attempt in the window expires.
type RateLimitGetRetryAfterFunc func(r *http.Request, estimatedTime time.Duration) time.Duration

// RateLimitOnRejectFunc is a function that is called for rejecting HTTP request when the rate limit is exceeded.
type RateLimitOnRejectFunc func(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, next http.Handler, logger log.FieldLogger)

// RateLimitOnErrorFunc is a function that is called when an error occurs during the rate limiting.
type RateLimitOnErrorFunc func(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, err error, next http.Handler, logger log.FieldLogger)

// RateLimitGetKeyFunc is a function that is called for getting key for rate limiting.
type RateLimitGetKeyFunc func(r *http.Request) (key string, bypass bool, err error)

// RateLimitOpts represents an options for the RateLimit middleware.
type RateLimitOpts struct {
	GetKey             RateLimitGetKeyFunc
	ResponseStatusCode int
	GetRetryAfter      RateLimitGetRetryAfterFunc
	DryRun             bool
	Logger             log.FieldLogger
	MetricsCollector   *MetricsCollector

	OnReject         RateLimitOnRejectFunc
	OnRejectInDryRun RateLimitOnRejectFunc
	OnError          RateLimitOnErrorFunc
}

type rateLimitHandler struct {
	next           http.Handler
	limiter        *ratelimit.SlidingWindowLimiter
	maxRate        Rate
	getKey         RateLimitGetKeyFunc
	errDomain      string
	respStatusCode int
	getRetryAfter  RateLimitGetRetryAfterFunc
	dryRun         bool
	logger         log.FieldLogger
	metrics        *MetricsCollector

	onReject RateLimitOnRejectFunc
	onError  RateLimitOnErrorFunc
}

// RateLimit is a middleware that limits the rate of HTTP requests
// using the passed sliding window limiter with the maxRate quota per key.
func RateLimit(
	limiter *ratelimit.SlidingWindowLimiter, maxRate Rate, errDomain string,
) (func(next http.Handler) http.Handler, error) {
	return RateLimitWithOpts(limiter, maxRate, errDomain, RateLimitOpts{GetRetryAfter: GetRetryAfterEstimatedTime})
}

// MustRateLimit is a version of RateLimit that panics if an error occurs.
func MustRateLimit(
	limiter *ratelimit.SlidingWindowLimiter, maxRate Rate, errDomain string,
) func(next http.Handler) http.Handler {
	mw, err := RateLimit(limiter, maxRate, errDomain)
	if err != nil {
		panic(err)
	}
	return mw
}

// RateLimitWithOpts is a configurable version of a middleware to limit the rate of HTTP requests.
func RateLimitWithOpts(
	limiter *ratelimit.SlidingWindowLimiter, maxRate Rate, errDomain string, opts RateLimitOpts,
) (func(next http.Handler) http.Handler, error) {
	if limiter == nil {
		return nil, fmt.Errorf("limiter must not be nil")
	}
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("max rate %d/%s is invalid", maxRate.Count, maxRate.Duration)
	}

	respStatusCode := opts.ResponseStatusCode
	if respStatusCode == 0 {
		respStatusCode = http.StatusTooManyRequests
	}

	return func(next http.Handler) http.Handler {
		return &rateLimitHandler{
			next:           next,
			limiter:        limiter,
			maxRate:        maxRate,
			errDomain:      errDomain,
			getKey:         opts.GetKey,
			respStatusCode: respStatusCode,
			getRetryAfter:  opts.GetRetryAfter,
			dryRun:         opts.DryRun,
			logger:         opts.Logger,
			metrics:        opts.MetricsCollector,
			onReject:       makeRateLimitOnRejectFunc(opts),
			onError:        makeRateLimitOnErrorFunc(opts),
		}
	}, nil
}

// MustRateLimitWithOpts is a version of RateLimitWithOpts that panics if an error occurs.
func MustRateLimitWithOpts(
	limiter *ratelimit.SlidingWindowLimiter, maxRate Rate, errDomain string, opts RateLimitOpts,
) func(next http.Handler) http.Handler {
	mw, err := RateLimitWithOpts(limiter, maxRate, errDomain, opts)
	if err != nil {
		panic(err)
	}
	return mw
}

func (h *rateLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	key := globalRateLimitKey
	if h.getKey != nil {
		var bypass bool
		var err error
		if key, bypass, err = h.getKey(r); err != nil {
			h.onError(rw, r, h.makeParams("", ratelimit.Status{}), fmt.Errorf("get key for rate limit: %w", err), h.next, h.logger)
			return
		}
		if bypass {
			h.next.ServeHTTP(rw, r)
			return
		}
		if key == "" {
			key = globalRateLimitKey
		}
	}

	allow, err := h.limiter.Check(key, h.maxRate.Count, h.maxRate.Duration)
	if err != nil {
		h.onError(rw, r, h.makeParams(key, ratelimit.Status{}), err, h.next, h.logger)
		return
	}
	status, err := h.limiter.Status(key, h.maxRate.Count, h.maxRate.Duration)
	if err != nil {
		h.onError(rw, r, h.makeParams(key, ratelimit.Status{}), err, h.next, h.logger)
		return
	}

	rw.Header().Set(HeaderRateLimitLimit, strconv.Itoa(status.Limit))
	rw.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(status.Remaining))
	rw.Header().Set(HeaderRateLimitReset, strconv.FormatInt(status.ResetAt.Unix(), 10))

	if !allow {
		h.metrics.incRejects(h.dryRun)
		h.onReject(rw, r, h.makeParamsWithRequestID(r, key, status), h.next, h.logger)
		return
	}

	h.next.ServeHTTP(rw, r)
}

func (h *rateLimitHandler) makeParams(key string, status ratelimit.Status) RateLimitParams {
	return RateLimitParams{
		ErrDomain:          h.errDomain,
		ResponseStatusCode: h.respStatusCode,
		GetRetryAfter:      h.getRetryAfter,
		Key:                key,
		Status:             status,
	}
}

func (h *rateLimitHandler) makeParamsWithRequestID(r *http.Request, key string, status ratelimit.Status) RateLimitParams {
	params := h.makeParams(key, status)
	params.RequestID = r.Header.Get(HeaderRequestID)
	if params.RequestID == "" {
		params.RequestID = xid.New().String()
	}
	return params
}

// GetRetryAfterEstimatedTime returns estimated time after that the client may retry the request.
func GetRetryAfterEstimatedTime(_ *http.Request, estimatedTime time.Duration) time.Duration {
	return estimatedTime
}

// DefaultRateLimitOnReject sends HTTP response with the Retry-After header
// and a JSON error in the body when the rate limit is exceeded.
func DefaultRateLimitOnReject(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger.Warn("too many requests",
			log.String(RateLimitLogFieldKey, params.Key),
			log.String(requestIDLogFieldKey, params.RequestID),
			log.String(userAgentLogFieldKey, r.UserAgent()),
		)
	}
	estimatedRetryAfter := time.Until(params.Status.ResetAt)
	if estimatedRetryAfter < 0 {
		estimatedRetryAfter = 0
	}
	retryAfter := estimatedRetryAfter
	if params.GetRetryAfter != nil {
		retryAfter = params.GetRetryAfter(r, estimatedRetryAfter)
	}
	rw.Header().Set(HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	RespondError(rw, params.ResponseStatusCode, NewTooManyRequestsError(params.ErrDomain), logger)
}

// DefaultRateLimitOnRejectInDryRun logs the reject and continues serving when the rate limit
// is exceeded in the dry-run mode.
func DefaultRateLimitOnRejectInDryRun(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger.Warn("too many requests, serving will be continued because of dry run mode",
			log.String(RateLimitLogFieldKey, params.Key),
			log.String(requestIDLogFieldKey, params.RequestID),
			log.String(userAgentLogFieldKey, r.UserAgent()),
		)
	}
	next.ServeHTTP(rw, r)
}

// DefaultRateLimitOnError sends HTTP response with 500 status code and an internal error
// in the body in case when the error occurs during the rate limiting.
func DefaultRateLimitOnError(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, err error, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger.Error(err.Error(), log.String(RateLimitLogFieldKey, params.Key))
	}
	RespondInternalError(rw, params.ErrDomain, logger)
}

func makeRateLimitOnRejectFunc(opts RateLimitOpts) RateLimitOnRejectFunc {
	if opts.DryRun {
		if opts.OnRejectInDryRun != nil {
			return opts.OnRejectInDryRun
		}
		return DefaultRateLimitOnRejectInDryRun
	}
	if opts.OnReject != nil {
		return opts.OnReject
	}
	return DefaultRateLimitOnReject
}

func makeRateLimitOnErrorFunc(opts RateLimitOpts) RateLimitOnErrorFunc {
	if opts.OnError != nil {
		return opts.OnError
	}
	return DefaultRateLimitOnError
}
