// Package ports defines the interfaces through which the factor analysis
// core talks to the outside world: the job submission endpoint, the event
// channel, the explanation endpoint and operational metrics.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-factorlens/internal/domain"
)

// JobSubmitter turns a free-text item into a backend analysis job.
type JobSubmitter interface {
	// SubmitJob starts an analysis for item and returns the job identifier.
	// Implementations should return a *TransportError for network failures
	// and an error wrapping ErrInvalidResponse when the backend answers
	// with an error payload.
	SubmitJob(ctx context.Context, item string) (jobID string, err error)
}

// EventStream is an explicitly owned, open event channel for one job.
// It is not safe for concurrent use by multiple readers.
type EventStream interface {
	// Next blocks until the next event is available.
	//
	// A malformed payload returns a *domain.EventError; the stream stays
	// usable and the caller may call Next again. Transport failures return
	// a *TransportError and end the stream. io.EOF signals a clean close.
	Next(ctx context.Context) (domain.Event, error)

	// Close releases the underlying connection. It is idempotent.
	Close() error
}

// StreamDialer opens event channels. Each call returns a new, independent
// connection handle; no connection state is shared between handles.
type StreamDialer interface {
	// Dial connects and subscribes to jobID's events.
	Dial(ctx context.Context, jobID string) (EventStream, error)
}

// ExplanationFetcher looks up natural-language explanations by factor name.
type ExplanationFetcher interface {
	// FetchExplanation returns the explanation text for item. An empty
	// string with a nil error means the backend had nothing to say.
	FetchExplanation(ctx context.Context, item string) (string, error)
}

// ExplanationFetcherFunc adapts a function to ExplanationFetcher.
type ExplanationFetcherFunc func(ctx context.Context, item string) (string, error)

// FetchExplanation implements ExplanationFetcher.
func (f ExplanationFetcherFunc) FetchExplanation(ctx context.Context, item string) (string, error) {
	return f(ctx, item)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus,
// OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like cache hits/misses, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like factor counts.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like response sizes,
	// scores, etc.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
