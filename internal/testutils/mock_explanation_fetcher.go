package testutils

import (
	"context"
	"sync"
	"time"
)

// MockExplanationFetcher implements ports.ExplanationFetcher with canned
// answers keyed by factor name. It counts calls per name so tests can
// assert single-flight behavior.
type MockExplanationFetcher struct {
	// Responses maps factor names to explanation text. Unknown names
	// return DefaultResponse.
	Responses map[string]string
	// DefaultResponse is returned for names missing from Responses.
	DefaultResponse string
	// Err, when set, is returned instead of a response.
	Err error
	// Delay is waited before answering.
	Delay time.Duration
	// Gate, when non-nil, blocks every call until it is closed or the
	// call's context ends.
	Gate chan struct{}

	mu      sync.Mutex
	calls   map[string]int
	started chan string
}

// NewMockExplanationFetcher creates a fetcher answering from responses.
func NewMockExplanationFetcher(responses map[string]string) *MockExplanationFetcher {
	return &MockExplanationFetcher{
		Responses: responses,
		calls:     make(map[string]int),
		started:   make(chan string, 64),
	}
}

// FetchExplanation implements ports.ExplanationFetcher.
func (m *MockExplanationFetcher) FetchExplanation(ctx context.Context, item string) (string, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[item]++
	started := m.started
	m.mu.Unlock()

	if started != nil {
		select {
		case started <- item:
		default:
		}
	}

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if m.Err != nil {
		return "", m.Err
	}
	if text, ok := m.Responses[item]; ok {
		return text, nil
	}
	return m.DefaultResponse, nil
}

// Started delivers the name of each call as it begins.
func (m *MockExplanationFetcher) Started() <-chan string { return m.started }

// Calls returns how many times item was fetched.
func (m *MockExplanationFetcher) Calls(item string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[item]
}

// TotalCalls returns the number of fetches across all names.
func (m *MockExplanationFetcher) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}
