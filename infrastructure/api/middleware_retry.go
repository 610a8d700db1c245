package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// retryFetcher retries transient failures with exponential backoff.
type retryFetcher struct {
	next       CoreFetcher
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware creates middleware that retries failed fetches with
// exponential backoff and jitter. Non-retryable backend answers, an open
// circuit and a done context stop the loop early.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreFetcher) CoreFetcher {
		return &retryFetcher{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

// Fetch executes the fetch with automatic retry logic.
func (r *retryFetcher) Fetch(ctx context.Context, item string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		text, err := r.next.Fetch(ctx, item)
		if err == nil {
			return text, nil
		}

		lastErr = err

		if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil || !retryable(err) {
			break
		}

		if attempt == r.maxRetries {
			break
		}

		delay := r.calculateDelay(attempt, retryAfter(err))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("request failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *retryFetcher) calculateDelay(attempt int, hint time.Duration) time.Duration {
	attempt = min(max(attempt, 0), 30)
	multiplier := 1 << uint(attempt)
	delay := time.Duration(float64(r.baseDelay) * float64(multiplier))

	// Jitter of ±25%.
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - (delay / 4)

	delay = max(delay, hint)
	if r.maxDelay > 0 && delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

// retryable treats everything except a classified permanent backend answer
// as transient.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return true
}

func retryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter != nil {
		return *apiErr.RetryAfter
	}
	return 0
}
