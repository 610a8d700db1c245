package api

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-factorlens/internal/ports"
)

// Metric names emitted by MetricsMiddleware.
const (
	MetricExplainLatency  = "explain_request_duration_seconds"
	MetricExplainRequests = "explain_requests_total"
)

// metricsFetcher records latency and outcome of each fetch.
type metricsFetcher struct {
	next      CoreFetcher
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that collects fetch metrics.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreFetcher) CoreFetcher {
		return &metricsFetcher{
			next:      next,
			collector: collector,
		}
	}
}

// Fetch executes the fetch while recording its duration and status.
func (m *metricsFetcher) Fetch(ctx context.Context, item string) (string, error) {
	start := time.Now()
	text, err := m.next.Fetch(ctx, item)

	labels := map[string]string{
		"operation": "explain",
		"status":    Status(ctx, text, err),
	}

	if m.collector != nil {
		m.collector.RecordHistogram(MetricExplainLatency, time.Since(start).Seconds(), labels)
		m.collector.RecordCounter(MetricExplainRequests, 1, labels)
	}

	return text, err
}

// Status names the outcome of a fetch for metrics labels.
func Status(ctx context.Context, text string, err error) string {
	var apiErr *APIError
	switch {
	case err == nil && text == "":
		return "empty"
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ports.ErrTimeout), ctx.Err() == context.DeadlineExceeded:
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &apiErr):
		return apiErr.Type.String()
	case errors.Is(err, ports.ErrTransport):
		return "network"
	default:
		return "error"
	}
}
