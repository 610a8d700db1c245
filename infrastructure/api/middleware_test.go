package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-factorlens/internal/ports"
)

// mockMetricsCollector captures metrics keyed by "name:status".
type mockMetricsCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string]float64
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string]float64),
	}
}

func (m *mockMetricsCollector) RecordLatency(string, time.Duration, map[string]string) {}
func (m *mockMetricsCollector) RecordGauge(string, float64, map[string]string)         {}

func (m *mockMetricsCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metric+":"+labels["status"]] += value
}

func (m *mockMetricsCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[metric+":"+labels["status"]] += value
}

var _ ports.MetricsCollector = (*mockMetricsCollector)(nil)

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("completes within timeout", func(t *testing.T) {
		mock := NewMockCoreFetcher()
		mock.ResponseDelay = 5 * time.Millisecond
		wrapped := TimeoutMiddleware(time.Second)(mock)

		text, err := wrapped.Fetch(context.Background(), "x")

		require.NoError(t, err)
		assert.Equal(t, "test explanation", text)
		_, hasDeadline := mock.GetLastContext().Deadline()
		assert.True(t, hasDeadline, "inner call should see a deadline")
	})

	t.Run("exceeds timeout", func(t *testing.T) {
		mock := NewMockCoreFetcher()
		mock.ResponseDelay = time.Second
		wrapped := TimeoutMiddleware(20 * time.Millisecond)(mock)

		_, err := wrapped.Fetch(context.Background(), "x")

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRateLimitMiddleware_PacesCalls(t *testing.T) {
	// Given a limiter of 20/s with no burst headroom
	mock := NewMockCoreFetcher()
	wrapped := RateLimitMiddleware(rate.Limit(20), 1)(mock)

	// When making three calls back to back
	start := time.Now()
	for range 3 {
		_, err := wrapped.Fetch(context.Background(), "x")
		require.NoError(t, err)
	}

	// Then the second and third wait for tokens
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, 3, mock.GetCallCount())
}

func TestRateLimitMiddleware_ContextEndsWait(t *testing.T) {
	mock := NewMockCoreFetcher()
	wrapped := RateLimitMiddleware(rate.Every(time.Hour), 1)(mock)

	_, err := wrapped.Fetch(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = wrapped.Fetch(ctx, "second")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, 1, mock.GetCallCount())
}

func TestMetricsMiddleware_RecordsOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		configure  func(m *MockCoreFetcher)
		wantStatus string
	}{
		{name: "success", configure: func(*MockCoreFetcher) {}, wantStatus: "success"},
		{name: "empty explanation", configure: func(m *MockCoreFetcher) { m.Response = "" }, wantStatus: "empty"},
		{name: "circuit open", configure: func(m *MockCoreFetcher) { m.Error = ErrCircuitOpen }, wantStatus: "circuit_open"},
		{name: "server error", configure: func(m *MockCoreFetcher) {
			m.Error = ErrorClassifier{}.ClassifyHTTPError(ExplainPath, 502, "")
		}, wantStatus: "server_error"},
		{name: "network", configure: func(m *MockCoreFetcher) {
			m.Error = ports.NewTransportError("http://x", "explain", errors.New("refused"))
		}, wantStatus: "network"},
		{name: "other", configure: func(m *MockCoreFetcher) { m.Error = errors.New("boom") }, wantStatus: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockCoreFetcher()
			tt.configure(mock)
			metrics := newMockMetricsCollector()
			wrapped := MetricsMiddleware(metrics)(mock)

			_, _ = wrapped.Fetch(context.Background(), "x")

			assert.Equal(t, 1.0, metrics.counters[MetricExplainRequests+":"+tt.wantStatus])
			assert.Contains(t, metrics.histograms, MetricExplainLatency+":"+tt.wantStatus)
		})
	}
}

func TestMetricsMiddleware_TimeoutStatus(t *testing.T) {
	mock := NewMockCoreFetcher()
	mock.ResponseDelay = time.Second
	metrics := newMockMetricsCollector()
	wrapped := MetricsMiddleware(metrics)(TimeoutMiddleware(10 * time.Millisecond)(mock))

	_, err := wrapped.Fetch(context.Background(), "x")

	require.Error(t, err)
	assert.Equal(t, 1.0, metrics.counters[MetricExplainRequests+":timeout"])
}

// recordingProvider wraps the noop provider and keeps every span started.
type recordingProvider struct {
	trace.TracerProvider
	mu    sync.Mutex
	spans []*recordingSpan
}

type recordingTracer struct {
	trace.Tracer
	p *recordingProvider
}

type recordingSpan struct {
	trace.Span
	name   string
	attrs  []attribute.KeyValue
	status codes.Code
	errs   []error
	ended  bool
}

func (p *recordingProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{Tracer: p.TracerProvider.Tracer(name, opts...), p: p}
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, inner := t.Tracer.Start(ctx, name, opts...)
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{Span: inner, name: name, attrs: cfg.Attributes()}
	t.p.mu.Lock()
	t.p.spans = append(t.p.spans, s)
	t.p.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

func (s *recordingSpan) End(...trace.SpanEndOption)                    { s.ended = true }
func (s *recordingSpan) SetStatus(c codes.Code, _ string)              { s.status = c }
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }
func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue)        { s.attrs = append(s.attrs, kv...) }

func (s *recordingSpan) attr(key string) (attribute.Value, bool) {
	for _, kv := range s.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddleware_RecordsSpan(t *testing.T) {
	// Given a recording tracer provider
	tp := &recordingProvider{TracerProvider: noop.NewTracerProvider()}
	mock := NewMockCoreFetcher()
	wrapped := TracingMiddlewareWithProvider("factorlens", tp)(mock)

	// When fetching successfully
	text, err := wrapped.Fetch(context.Background(), "Battery")

	// Then one ended span carries the factor and result size
	require.NoError(t, err)
	assert.Equal(t, "test explanation", text)
	require.Len(t, tp.spans, 1)
	span := tp.spans[0]
	assert.Equal(t, "explanation.fetch", span.name)
	assert.True(t, span.ended)
	v, ok := span.attr("factor.name")
	require.True(t, ok)
	assert.Equal(t, "Battery", v.AsString())
	v, ok = span.attr("explanation.length")
	require.True(t, ok)
	assert.Equal(t, int64(len("test explanation")), v.AsInt64())

	// And the inner call sees the span in its context
	assert.Same(t, span, trace.SpanFromContext(mock.GetLastContext()))
}

func TestTracingMiddleware_RecordsErrors(t *testing.T) {
	tp := &recordingProvider{TracerProvider: noop.NewTracerProvider()}
	mock := NewMockCoreFetcher()
	mock.Error = ErrorClassifier{}.ClassifyHTTPError(ExplainPath, 500, "")
	wrapped := TracingMiddlewareWithProvider("factorlens", tp)(mock)

	_, err := wrapped.Fetch(context.Background(), "Battery")

	require.Error(t, err)
	require.Len(t, tp.spans, 1)
	span := tp.spans[0]
	assert.Equal(t, codes.Error, span.status)
	require.Len(t, span.errs, 1)
	v, ok := span.attr("http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(500), v.AsInt64())
}

func TestTracingMiddleware_GlobalProviderPassesThrough(t *testing.T) {
	mock := NewMockCoreFetcher()
	mock.Error = errors.New("service error")
	wrapped := TracingMiddleware("factorlens")(mock)

	_, err := wrapped.Fetch(context.Background(), "x")

	assert.EqualError(t, err, "service error", "should return original error")
	assert.Equal(t, 1, mock.GetCallCount())
}

func TestNewExplainFetcher_OrderAndPortContract(t *testing.T) {
	// Given two middleware that record their order
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreFetcher) CoreFetcher {
			return CoreFetcherFunc(func(ctx context.Context, item string) (string, error) {
				order = append(order, name)
				return next.Fetch(ctx, item)
			})
		}
	}
	mock := NewMockCoreFetcher()

	// When building the fetcher
	var fetcher ports.ExplanationFetcher = NewExplainFetcher(mock, tag("outer"), tag("inner"))
	text, err := fetcher.FetchExplanation(context.Background(), "RAM")

	// Then the first middleware runs first
	require.NoError(t, err)
	assert.Equal(t, "test explanation", text)
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, "RAM", mock.LastItem)
}

func TestStandardMiddleware(t *testing.T) {
	full := StandardMiddleware(ResilienceConfig{
		Timeout:       time.Second,
		MaxRetries:    2,
		BaseDelay:     time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		RatePerSecond: 100,
		Burst:         10,
		MaxFailures:   5,
		Cooldown:      time.Second,
		ServiceName:   "factorlens",
	}, newMockMetricsCollector(), nil)
	assert.Len(t, full, 6)

	minimal := StandardMiddleware(ResilienceConfig{}, nil, nil)
	assert.Len(t, minimal, 1, "tracing is always on")

	// A retried transient failure still succeeds through the full chain.
	mock := NewMockCoreFetcher()
	mock.FailUntilAttempt = 1
	text, err := NewExplainFetcher(mock, full...).FetchExplanation(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "test explanation", text)
	assert.Equal(t, 2, mock.GetCallCount())
}
