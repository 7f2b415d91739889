/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of the sliding window limiter's metrics.
type MetricsCollector interface {
	// SetTrackedKeysAmount sets the current number of keys with recorded state.
	SetTrackedKeysAmount(amount int)

	// AddRemovedIdleKeys increases the total number of keys removed by the cleanup.
	AddRemovedIdleKeys(removed int)
}

// PrometheusMetrics represents the limiter's metrics for Prometheus.
type PrometheusMetrics struct {
	TrackedKeysAmount    prometheus.Gauge
	RemovedIdleKeysTotal prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	trackedKeysAmount := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rate_limit_tracked_keys",
		Help:      "Current number of keys tracked by the sliding window rate limiter.",
	})
	removedIdleKeysTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_removed_idle_keys_total",
		Help:      "Total number of idle keys removed by the cleanup worker.",
	})
	return &PrometheusMetrics{
		TrackedKeysAmount:    trackedKeysAmount,
		RemovedIdleKeysTotal: removedIdleKeysTotal,
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.TrackedKeysAmount,
		pm.RemovedIdleKeysTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.TrackedKeysAmount)
	prometheus.Unregister(pm.RemovedIdleKeysTotal)
}

// SetTrackedKeysAmount sets the current number of keys with recorded state.
func (pm *PrometheusMetrics) SetTrackedKeysAmount(amount int) {
	pm.TrackedKeysAmount.Set(float64(amount))
}

// AddRemovedIdleKeys increases the total number of keys removed by the cleanup.
func (pm *PrometheusMetrics) AddRemovedIdleKeys(removed int) {
	pm.RemovedIdleKeysTotal.Add(float64(removed))
}

type disabledMetrics struct{}

func (disabledMetrics) SetTrackedKeysAmount(amount int) {}
func (disabledMetrics) AddRemovedIdleKeys(removed int)  {}
