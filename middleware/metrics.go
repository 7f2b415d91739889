/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import "github.com/prometheus/client_golang/prometheus"

const metricsLabelDryRun = "dry_run"

const (
	metricsValYes = "yes"
	metricsValNo  = "no"
)

// MetricsCollector represents collector of metrics for rate limiting rejects.
type MetricsCollector struct {
	RateLimitRejects *prometheus.CounterVec
}

// NewMetricsCollector creates a new instance of MetricsCollector.
// curriedLabelNames is a list of additional labels that should be bound later with MustCurryWith
// (for example, a name of the rate limiting rule when one collector serves multiple middlewares).
func NewMetricsCollector(namespace string, curriedLabelNames ...string) *MetricsCollector {
	labelNames := append([]string{metricsLabelDryRun}, curriedLabelNames...)
	rateLimitRejects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejects_total",
		Help:      "Number of rejected requests due to rate limit exceeded.",
	}, labelNames)
	return &MetricsCollector{RateLimitRejects: rateLimitRejects}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (mc *MetricsCollector) MustCurryWith(labels prometheus.Labels) *MetricsCollector {
	return &MetricsCollector{RateLimitRejects: mc.RateLimitRejects.MustCurryWith(labels)}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (mc *MetricsCollector) MustRegister() {
	prometheus.MustRegister(mc.RateLimitRejects)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (mc *MetricsCollector) Unregister() {
	prometheus.Unregister(mc.RateLimitRejects)
}

func (mc *MetricsCollector) incRejects(dryRun bool) {
	if mc == nil {
		return
	}
	dryRunVal := metricsValNo
	if dryRun {
		dryRunVal = metricsValYes
	}
	mc.RateLimitRejects.With(prometheus.Labels{metricsLabelDryRun: dryRunVal}).Inc()
}
