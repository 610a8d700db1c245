// Package middleware provides cross-cutting concerns for the factor
// analysis client.
package middleware

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-factorlens/infrastructure/api"
	"github.com/ahrav/go-factorlens/internal/application"
	"github.com/ahrav/go-factorlens/internal/ports"
)

// Namespace prefixes every metric name.
const Namespace = "factorlens"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks explanation requests, stream events, cache lookups and circuit
// breaker state. Each instance owns its registry, so several can coexist
// in one process.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	explainLatency   *prometheus.HistogramVec
	explainRequests  *prometheus.CounterVec
	streamEvents     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	sessionFactors   prometheus.Gauge
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
	breakerState     prometheus.Gauge
	breakerRequests  *prometheus.CounterVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance with all
// metrics registered in a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,

		explainLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      api.MetricExplainLatency,
				Help:      "Duration of explanation requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		explainRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      api.MetricExplainRequests,
				Help:      "Explanation requests by outcome.",
			},
			[]string{"operation", "status"},
		),
		streamEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      application.MetricStreamEvents,
				Help:      "Stream events by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      application.MetricCacheLookups,
				Help:      "Explanation cache lookups by result.",
			},
			[]string{"result"},
		),
		sessionFactors: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      application.MetricSessionFactors,
				Help:      "Factors held by the most recently updated session.",
			},
		),

		// Fallbacks for metrics without a dedicated series.
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of other client operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Count of other client operations.",
			},
			[]string{"operation"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "system_state",
				Help:      "Other client state values.",
			},
			[]string{"metric"},
		),

		breakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "circuit_breaker_state",
				Help:      "Explanation circuit breaker state (0 closed, 1 open, 2 half-open).",
			},
		),
		breakerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Requests seen by the explanation circuit breaker.",
			},
			[]string{"result"},
		),
	}
}

// Registry returns the registry holding every metric of this instance.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry { return pm.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// RecordLatency implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	if operation == api.MetricExplainLatency {
		pm.explainLatency.WithLabelValues(label(labels, "operation"), label(labels, "status")).Observe(duration.Seconds())
		return
	}
	pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case api.MetricExplainRequests:
		pm.explainRequests.WithLabelValues(label(labels, "operation"), label(labels, "status")).Add(value)
	case application.MetricStreamEvents:
		pm.streamEvents.WithLabelValues(label(labels, "type"), label(labels, "outcome")).Add(value)
	case application.MetricCacheLookups:
		pm.cacheLookups.WithLabelValues(label(labels, "result")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	if metric == application.MetricSessionFactors {
		pm.sessionFactors.Set(value)
		return
	}
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if metric == api.MetricExplainLatency {
		pm.explainLatency.WithLabelValues(label(labels, "operation"), label(labels, "status")).Observe(value)
		return
	}
	pm.operationLatency.WithLabelValues(metric).Observe(value)
}

// RecordState implements api.CircuitBreakerMetrics.
func (pm *PrometheusMetrics) RecordState(state api.CircuitBreakerState) {
	pm.breakerState.Set(float64(state))
}

// RecordTrip implements api.CircuitBreakerMetrics.
func (pm *PrometheusMetrics) RecordTrip() { pm.breakerRequests.WithLabelValues("rejected").Inc() }

// RecordSuccess implements api.CircuitBreakerMetrics.
func (pm *PrometheusMetrics) RecordSuccess() { pm.breakerRequests.WithLabelValues("success").Inc() }

// RecordFailure implements api.CircuitBreakerMetrics.
func (pm *PrometheusMetrics) RecordFailure() { pm.breakerRequests.WithLabelValues("failure").Inc() }

func label(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}

var (
	_ ports.MetricsCollector    = (*PrometheusMetrics)(nil)
	_ api.CircuitBreakerMetrics = (*PrometheusMetrics)(nil)
)
