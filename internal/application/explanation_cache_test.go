package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ahrav/go-factorlens/internal/domain"
	"github.com/ahrav/go-factorlens/internal/testutils"
)

var ramFactor = domain.Factor{Rank: 2, Name: "RAM", EffectShort: "Multitasking", Direction: domain.DirectionIncreases}

func waitStarted(t *testing.T, f *testutils.MockExplanationFetcher) {
	t.Helper()
	select {
	case <-f.Started():
	case <-time.After(2 * time.Second):
		t.Fatal("fetch never started")
	}
}

func TestExplanationCache_SingleFlight(t *testing.T) {
	// Given a fetcher that blocks until released
	fetcher := testutils.NewMockExplanationFetcher(map[string]string{"RAM": "  Working memory.  "})
	fetcher.Gate = make(chan struct{})
	cache := NewExplanationCache(fetcher)
	defer cache.Dispose()

	// When several callers ask for the same factor concurrently
	const callers = 8
	results := make([]domain.Explanation, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = cache.Get(context.Background(), ramFactor)
		}()
	}
	waitStarted(t, fetcher)
	close(fetcher.Gate)
	wg.Wait()

	// Then the backend is hit once and every caller gets the trimmed text
	assert.Equal(t, 1, fetcher.Calls("RAM"))
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "Working memory.", results[i].Text)
	}
}

func TestExplanationCache_HitDoesNotRefetch(t *testing.T) {
	fetcher := testutils.NewMockExplanationFetcher(map[string]string{"RAM": "Working memory."})
	metrics := testutils.NewMockMetricsCollector()
	cache := NewExplanationCache(fetcher, WithCacheMetrics(metrics))
	defer cache.Dispose()

	_, err := cache.Get(context.Background(), ramFactor)
	require.NoError(t, err)
	e, err := cache.Get(context.Background(), ramFactor)
	require.NoError(t, err)

	assert.Equal(t, "Working memory.", e.Text)
	assert.Equal(t, 1, fetcher.Calls("RAM"))
	assert.Equal(t, 1.0, metrics.Counter(MetricCacheLookups, map[string]string{"result": "miss"}))
	assert.Equal(t, 1.0, metrics.Counter(MetricCacheLookups, map[string]string{"result": "hit"}))
}

func TestExplanationCache_FailureCachesEmpty(t *testing.T) {
	// Given a fetcher that always fails
	fetcher := testutils.NewMockExplanationFetcher(nil)
	fetcher.Err = errors.New("backend down")
	cache := NewExplanationCache(fetcher)
	defer cache.Dispose()

	// When the factor is requested twice
	first, err1 := cache.Get(context.Background(), ramFactor)
	second, err2 := cache.Get(context.Background(), ramFactor)

	// Then the failure is absorbed as an empty explanation and not retried
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, first.IsEmpty())
	assert.True(t, second.IsEmpty())
	assert.Equal(t, 1, fetcher.Calls("RAM"))

	cached, ok := cache.Lookup(ramFactor.Key())
	assert.True(t, ok)
	assert.Equal(t, domain.EmptyExplanation, cached)
}

func TestExplanationCache_KeysAreIdentityKeys(t *testing.T) {
	// The same name at a different rank is a different factor.
	fetcher := testutils.NewMockExplanationFetcher(map[string]string{"RAM": "Working memory."})
	cache := NewExplanationCache(fetcher)
	defer cache.Dispose()

	other := ramFactor
	other.Rank = 5

	_, err := cache.Get(context.Background(), ramFactor)
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), other)
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.Calls("RAM"))
	assert.Equal(t, 2, cache.Len())
}

func TestExplanationCache_CallerCancelDoesNotCancelFetch(t *testing.T) {
	// Given a pending fetch
	fetcher := testutils.NewMockExplanationFetcher(map[string]string{"RAM": "Working memory."})
	fetcher.Gate = make(chan struct{})
	cache := NewExplanationCache(fetcher)
	defer cache.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, ramFactor)
		done <- err
	}()
	waitStarted(t, fetcher)

	// When the caller gives up
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// Then the fetch still completes and fills the cache
	close(fetcher.Gate)
	require.Eventually(t, func() bool {
		_, ok := cache.Lookup(ramFactor.Key())
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, fetcher.Calls("RAM"))
}

func TestExplanationCache_DisposeDropsLateResult(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	// Given a fetch in flight
	fetcher := testutils.NewMockExplanationFetcher(map[string]string{"RAM": "Working memory."})
	fetcher.Gate = make(chan struct{})
	defer close(fetcher.Gate)
	cache := NewExplanationCache(fetcher)

	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(context.Background(), ramFactor)
		done <- err
	}()
	waitStarted(t, fetcher)

	// When the cache is disposed before the fetch resolves
	cache.Dispose()

	// Then the waiting caller is told and nothing is stored
	assert.ErrorIs(t, <-done, domain.ErrDisposed)
	assert.Zero(t, cache.Len())
	assert.True(t, cache.Disposed())

	_, err := cache.Get(context.Background(), ramFactor)
	assert.ErrorIs(t, err, domain.ErrDisposed)

	cache.Dispose()
}
