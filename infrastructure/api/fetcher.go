package api

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-factorlens/internal/ports"
)

// CoreFetcher is the minimal explanation lookup that middleware wraps.
type CoreFetcher interface {
	// Fetch returns the explanation text for item.
	Fetch(ctx context.Context, item string) (string, error)
}

// CoreFetcherFunc adapts a function to CoreFetcher.
type CoreFetcherFunc func(ctx context.Context, item string) (string, error)

// Fetch implements CoreFetcher.
func (f CoreFetcherFunc) Fetch(ctx context.Context, item string) (string, error) {
	return f(ctx, item)
}

// Middleware wraps a CoreFetcher to add cross-cutting behavior.
type Middleware func(CoreFetcher) CoreFetcher

// ExplainFetcher is the ports.ExplanationFetcher backed by a wrapped core.
type ExplainFetcher struct {
	core CoreFetcher
}

var _ ports.ExplanationFetcher = (*ExplainFetcher)(nil)

// NewExplainFetcher wraps core with mw. The first middleware is the
// outermost.
func NewExplainFetcher(core CoreFetcher, mw ...Middleware) *ExplainFetcher {
	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(mw) - 1; i >= 0; i-- {
		core = mw[i](core)
	}
	return &ExplainFetcher{core: core}
}

// FetchExplanation implements ports.ExplanationFetcher.
func (f *ExplainFetcher) FetchExplanation(ctx context.Context, item string) (string, error) {
	return f.core.Fetch(ctx, item)
}

// ResilienceConfig holds the knobs of the standard middleware chain. Zero
// values disable the corresponding middleware.
type ResilienceConfig struct {
	// Timeout bounds each attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// RatePerSecond and Burst configure the token bucket.
	RatePerSecond float64
	Burst         int

	// MaxFailures consecutive failures open the circuit for Cooldown.
	MaxFailures int
	Cooldown    time.Duration

	// ServiceName labels trace spans.
	ServiceName string
}

// StandardMiddleware assembles the default chain, outermost first:
// tracing, metrics, retry, circuit breaker, rate limit, per-attempt
// timeout. collector and cbMetrics may be nil.
func StandardMiddleware(cfg ResilienceConfig, collector ports.MetricsCollector, cbMetrics CircuitBreakerMetrics) []Middleware {
	mw := []Middleware{TracingMiddleware(cfg.ServiceName)}
	if collector != nil {
		mw = append(mw, MetricsMiddleware(collector))
	}
	if cfg.MaxRetries > 0 {
		mw = append(mw, RetryMiddleware(cfg.MaxRetries, cfg.BaseDelay, cfg.MaxDelay))
	}
	if cfg.MaxFailures > 0 {
		mw = append(mw, CircuitBreakerMiddlewareWithMetrics(cfg.MaxFailures, cfg.Cooldown, cbMetrics))
	}
	if cfg.RatePerSecond > 0 {
		mw = append(mw, RateLimitMiddleware(rate.Limit(cfg.RatePerSecond), max(1, cfg.Burst)))
	}
	if cfg.Timeout > 0 {
		mw = append(mw, TimeoutMiddleware(cfg.Timeout))
	}
	return mw
}
