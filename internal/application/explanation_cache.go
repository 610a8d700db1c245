package application

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-factorlens/internal/domain"
	"github.com/ahrav/go-factorlens/internal/ports"
)

// Metric names emitted by ExplanationCache.
const (
	MetricCacheLookups = "explanation_cache_lookups_total"
)

// ExplanationCache memoizes explanation fetches per factor identity key.
// At most one fetch per key is in flight at a time; concurrent callers for
// the same key share its result. A failed or empty fetch caches
// domain.EmptyExplanation so the factor is never fetched again.
//
// Fetches run under the cache's own context, not the caller's, so one
// caller giving up does not cancel the fetch for the others. Dispose
// cancels that context.
type ExplanationCache struct {
	fetcher ports.ExplanationFetcher
	logger  *zap.Logger
	metrics ports.MetricsCollector

	mu       sync.RWMutex
	entries  map[string]domain.Explanation
	disposed bool

	sf     singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// CacheOption configures an ExplanationCache.
type CacheOption func(*ExplanationCache)

// WithCacheLogger sets the cache's logger.
func WithCacheLogger(l *zap.Logger) CacheOption {
	return func(c *ExplanationCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCacheMetrics sets the collector for hit and miss counts.
func WithCacheMetrics(m ports.MetricsCollector) CacheOption {
	return func(c *ExplanationCache) { c.metrics = m }
}

// NewExplanationCache creates an empty cache backed by fetcher.
func NewExplanationCache(fetcher ports.ExplanationFetcher, opts ...CacheOption) *ExplanationCache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &ExplanationCache{
		fetcher: fetcher,
		logger:  zap.NewNop(),
		entries: make(map[string]domain.Explanation),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached explanation for key without fetching. The
// boolean is false when key has not been fetched yet.
func (c *ExplanationCache) Lookup(key string) (domain.Explanation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Get returns the explanation for f, fetching it by name on first use.
// A fetch failure is not returned: it is cached as EmptyExplanation.
// Get returns ctx.Err() when ctx ends first, and domain.ErrDisposed once
// the cache has been disposed.
func (c *ExplanationCache) Get(ctx context.Context, f domain.Factor) (domain.Explanation, error) {
	key := f.Key()

	c.mu.RLock()
	disposed := c.disposed
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if disposed {
		return domain.EmptyExplanation, domain.ErrDisposed
	}
	if ok {
		c.record("hit")
		return e, nil
	}

	ch := c.sf.DoChan(key, func() (any, error) {
		// Check cache inside singleflight to handle the race between the
		// cache check and group execution.
		if e, ok := c.Lookup(key); ok {
			return e, nil
		}
		return c.fetch(key, f.Name)
	})

	select {
	case <-ctx.Done():
		return domain.EmptyExplanation, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.EmptyExplanation, res.Err
		}
		if res.Shared {
			c.record("shared")
		} else {
			c.record("miss")
		}
		return res.Val.(domain.Explanation), nil
	}
}

func (c *ExplanationCache) fetch(key, name string) (domain.Explanation, error) {
	text, err := c.fetcher.FetchExplanation(c.ctx, name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return domain.EmptyExplanation, domain.ErrDisposed
	}

	e := domain.NewExplanation(text)
	if err != nil {
		c.logger.Warn("explanation fetch failed",
			zap.String("factor_key", key),
			zap.Error(err),
		)
		e = domain.EmptyExplanation
	}
	c.entries[key] = e
	return e, nil
}

// Dispose discards all entries, cancels in-flight fetches and rejects
// further use. Results of fetches that finish afterwards are dropped.
// It is idempotent.
func (c *ExplanationCache) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.entries = make(map[string]domain.Explanation)
	c.cancel()
}

// Disposed reports whether Dispose has been called.
func (c *ExplanationCache) Disposed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disposed
}

// Len returns the number of cached entries.
func (c *ExplanationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ExplanationCache) record(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCounter(MetricCacheLookups, 1, map[string]string{"result": result})
}
