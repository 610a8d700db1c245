package api

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errSimulated is returned by MockCoreFetcher when no Error is configured.
var errSimulated = errors.New("simulated failure")

// MockCoreFetcher is a configurable CoreFetcher for middleware and cache
// tests.
type MockCoreFetcher struct {
	mu sync.Mutex

	// Response configuration
	Response      string
	Error         error
	ResponseDelay time.Duration

	// FailUntilAttempt fails the first N calls, then succeeds.
	FailUntilAttempt int

	// Tracking
	CallCount      int
	LastItem       string
	LastContext    context.Context
	CallTimestamps []time.Time
}

// NewMockCoreFetcher creates a mock that succeeds with a fixed response.
func NewMockCoreFetcher() *MockCoreFetcher {
	return &MockCoreFetcher{
		Response:       "test explanation",
		CallTimestamps: make([]time.Time, 0),
	}
}

// Fetch implements CoreFetcher. The delay is observed without holding the
// lock so concurrent callers overlap.
func (m *MockCoreFetcher) Fetch(ctx context.Context, item string) (string, error) {
	m.mu.Lock()
	m.CallCount++
	call := m.CallCount
	m.LastItem = item
	m.LastContext = ctx
	m.CallTimestamps = append(m.CallTimestamps, time.Now())
	delay, resp, failUntil, cfgErr := m.ResponseDelay, m.Response, m.FailUntilAttempt, m.Error
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if failUntil > 0 && call <= failUntil {
		if cfgErr != nil {
			return "", cfgErr
		}
		return "", errSimulated
	}
	if cfgErr != nil {
		return "", cfgErr
	}
	return resp, nil
}

// GetCallCount returns the number of calls made so far.
func (m *MockCoreFetcher) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetLastContext returns the context of the most recent call.
func (m *MockCoreFetcher) GetLastContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastContext
}

// Reset clears tracking data while preserving configuration.
func (m *MockCoreFetcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.LastItem = ""
	m.LastContext = nil
	m.CallTimestamps = make([]time.Time, 0)
}
