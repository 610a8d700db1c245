package api

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedFetcher paces fetches with a token bucket so that expanding
// many rows at once does not flood the backend.
type rateLimitedFetcher struct {
	next    CoreFetcher
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces rate limiting using a
// token bucket. The limiter is shared by every fetcher the middleware wraps.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreFetcher) CoreFetcher {
		return &rateLimitedFetcher{
			next:    next,
			limiter: limiter,
		}
	}
}

// Fetch blocks until a token is available, then forwards the call.
func (r *rateLimitedFetcher) Fetch(ctx context.Context, item string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Fetch(ctx, item)
}
