package api

import (
	"context"
	"time"
)

// timeoutFetcher bounds each fetch with its own deadline.
type timeoutFetcher struct {
	next    CoreFetcher
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that enforces a per-call timeout.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreFetcher) CoreFetcher {
		return &timeoutFetcher{
			next:    next,
			timeout: timeout,
		}
	}
}

// Fetch runs the wrapped fetch with a timeout context.
func (t *timeoutFetcher) Fetch(ctx context.Context, item string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Fetch(ctx, item)
}
