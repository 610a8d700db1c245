// Package application wires the factor aggregator, the explanation cache
// and the derived analytics into a per-job Session, and loads the client
// configuration.
package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-factorlens/infrastructure/analytics"
	"github.com/ahrav/go-factorlens/internal/domain"
	"github.com/ahrav/go-factorlens/internal/ports"
)

// Session errors.
var (
	// ErrEmptyItem is returned by Start for a blank item.
	ErrEmptyItem = errors.New("item is required")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("session already running")
)

// Metric names emitted by Session.
const (
	MetricStreamEvents   = "stream_events_total"
	MetricSessionFactors = "session_factors"
)

// Update is a point-in-time view of a session, delivered after each state
// change.
type Update struct {
	// JobID identifies the job.
	JobID string
	// Factors is a rank-ordered copy of the current collection.
	Factors []domain.Factor
	// InFlightKey is the key of the most recent partial factor while the
	// job is still streaming.
	InFlightKey string
	// Finalized is true once the final event has been applied.
	Finalized bool
	// Done is true once the stream has ended for any reason.
	Done bool
	// Err is the single user-visible stream failure, if any.
	Err error
	// Report holds the derived views of Factors.
	Report analytics.Report
}

// Typing reports whether the typing indicator should be shown.
func (u Update) Typing() bool { return u.InFlightKey != "" && !u.Finalized }

// Session consumes one job's event stream into a FactorAggregator and
// serves explanations and derived views for it. Run must be called at most
// once; every other method is safe for concurrent use.
type Session struct {
	id     string
	jobID  string
	stream ports.EventStream
	agg    *domain.FactorAggregator
	cache  *ExplanationCache
	engine analytics.Engine

	logger  *zap.Logger
	metrics ports.MetricsCollector

	updates chan Update

	mu        sync.RWMutex
	err       error
	done      bool
	malformed int

	runOnce   sync.Once
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the session's logger.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSessionMetrics sets the metrics collector for stream and cache
// counters.
func WithSessionMetrics(m ports.MetricsCollector) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithEngine sets the analytics engine, e.g. for a non-default locale.
func WithEngine(e analytics.Engine) SessionOption {
	return func(s *Session) { s.engine = e }
}

// NewSession creates a session for jobID reading from stream. The session
// owns stream and closes it on Close.
func NewSession(jobID string, stream ports.EventStream, fetcher ports.ExplanationFetcher, opts ...SessionOption) *Session {
	s := &Session{
		id:      uuid.NewString(),
		jobID:   jobID,
		stream:  stream,
		agg:     domain.NewFactorAggregator(jobID),
		logger:  zap.NewNop(),
		updates: make(chan Update, 1),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("job_id", jobID), zap.String("session_id", s.id))
	s.cache = NewExplanationCache(fetcher, WithCacheLogger(s.logger), WithCacheMetrics(s.metrics))
	return s
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// JobID returns the job this session follows.
func (s *Session) JobID() string { return s.jobID }

// Updates returns the notification channel. It holds at most one pending
// update; a newer update replaces an unread one. The channel is closed
// when Run returns.
func (s *Session) Updates() <-chan Update { return s.updates }

// Run applies events in arrival order until the stream ends, ctx is done
// or the session is closed. Malformed events are logged and skipped. A
// transport failure is recorded as the session's error and returned; the
// collected factors stay available.
func (s *Session) Run(ctx context.Context) error {
	err := ErrAlreadyRunning
	s.runOnce.Do(func() {
		err = s.run(ctx)
	})
	return err
}

func (s *Session) run(ctx context.Context) error {
	defer close(s.updates)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return s.pump(gctx)
	})
	g.Go(func() error {
		select {
		case <-s.closed:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	s.notify()

	if err == nil && ctx.Err() != nil && !s.isClosed() {
		return ctx.Err()
	}
	return err
}

func (s *Session) pump(ctx context.Context) error {
	s.logger.Debug("session started")
	for {
		ev, err := s.stream.Next(ctx)
		switch {
		case err == nil:
			s.apply(ev)

		case errors.Is(err, domain.ErrMalformedEvent):
			s.dropMalformed("", err)

		case errors.Is(err, io.EOF):
			s.logger.Debug("stream ended")
			return nil

		case ctx.Err() != nil, s.isClosed():
			return nil

		default:
			s.logger.Warn("stream failed", zap.Error(err))
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
			return err
		}
	}
}

func (s *Session) apply(ev domain.Event) {
	err := s.agg.Apply(ev)

	// Apply only succeeds for value events, so Type is safe to call then;
	// on failure the tag comes from the EventError.
	var t domain.EventType
	if err == nil {
		t = ev.Type()
	} else {
		var evErr *domain.EventError
		if errors.As(err, &evErr) {
			t = evErr.Type
		}
	}

	switch {
	case err == nil:
		if _, unknown := ev.(domain.UnknownEvent); unknown {
			s.count(t, "ignored")
			return
		}
		s.count(t, "applied")
		if s.metrics != nil {
			s.metrics.RecordGauge(MetricSessionFactors, float64(s.agg.Len()), nil)
		}
		s.notify()

	case errors.Is(err, domain.ErrStreamFinalized):
		s.logger.Debug("ignoring partial after final", zap.Error(err))
		s.count(t, "late")

	case errors.Is(err, domain.ErrMalformedEvent):
		s.dropMalformed(t, err)

	default:
		s.logger.Debug("event not applied", zap.Error(err))
		s.count(t, "rejected")
	}
}

func (s *Session) dropMalformed(t domain.EventType, err error) {
	s.logger.Warn("dropping malformed event", zap.Error(err))
	s.mu.Lock()
	s.malformed++
	s.mu.Unlock()
	if t == "" {
		var evErr *domain.EventError
		if errors.As(err, &evErr) {
			t = evErr.Type
		}
	}
	s.count(t, "malformed")
}

func (s *Session) count(t domain.EventType, outcome string) {
	if s.metrics == nil {
		return
	}
	if t == "" {
		t = "unknown"
	}
	s.metrics.RecordCounter(MetricStreamEvents, 1, map[string]string{
		"type":    string(t),
		"outcome": outcome,
	})
}

// notify publishes the current state, replacing any unread update. Only
// the Run goroutine sends.
func (s *Session) notify() {
	u := s.State()
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- u:
	default:
	}
}

// Collect runs the session until the final result set arrives, the stream
// fails or ctx ends, then closes the session. onUpdate, if non-nil, sees
// every update in order. The last update before closing is returned along
// with Run's error.
func (s *Session) Collect(ctx context.Context, onUpdate func(Update)) (Update, error) {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	var last Update
	for u := range s.Updates() {
		if s.Disposed() {
			continue
		}
		last = u
		if onUpdate != nil {
			onUpdate(u)
		}
		if u.Finalized || u.Done {
			_ = s.Close()
		}
	}
	err := <-errCh
	_ = s.Close()
	return last, err
}

// State returns the current view of the session.
func (s *Session) State() Update {
	v := s.agg.View()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Update{
		JobID:       s.jobID,
		Factors:     v.Factors,
		InFlightKey: v.InFlightKey,
		Finalized:   v.Finalized,
		Done:        s.done,
		Err:         s.err,
		Report:      s.engine.Analyze(v.Factors),
	}
}

// Snapshot returns a copy of the current factors in rank order.
func (s *Session) Snapshot() []domain.Factor { return s.agg.Snapshot() }

// Err returns the stream failure shown to the user, or nil.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// MalformedCount returns how many events were dropped as malformed.
func (s *Session) MalformedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.malformed
}

// Report computes the derived views of the current snapshot.
func (s *Session) Report() analytics.Report {
	return s.engine.Analyze(s.agg.Snapshot())
}

// Explain returns the three-part explanation for f, fetching the backend
// text on first use. Fetch failures fall back to the templated text.
func (s *Session) Explain(ctx context.Context, f domain.Factor) (domain.ExplanationText, error) {
	e, err := s.cache.Get(ctx, f)
	if err != nil {
		return domain.ExplanationText{}, err
	}
	return domain.BuildExplanation(f, e), nil
}

// CachedExplanation returns the explanation for f only if it has already
// been fetched.
func (s *Session) CachedExplanation(f domain.Factor) (domain.ExplanationText, bool) {
	e, ok := s.cache.Lookup(f.Key())
	if !ok {
		return domain.ExplanationText{}, false
	}
	return domain.BuildExplanation(f, e), true
}

// Close stops Run, closes the stream and disposes the cache and the
// aggregator. It is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.stream.Close()
		s.cache.Dispose()
		s.agg.Dispose()
		s.logger.Debug("session closed")
	})
	return s.closeErr
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Disposed reports whether Close has been called.
func (s *Session) Disposed() bool { return s.isClosed() }

// Analyzer starts sessions: it submits an item as a job and opens the
// job's event stream.
type Analyzer struct {
	Submitter ports.JobSubmitter
	Dialer    ports.StreamDialer
	Fetcher   ports.ExplanationFetcher
	Options   []SessionOption
}

// Start submits item and returns a session for the new job. The caller
// runs and closes the session.
func (a *Analyzer) Start(ctx context.Context, item string) (*Session, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, ErrEmptyItem
	}

	jobID, err := a.Submitter.SubmitJob(ctx, item)
	if err != nil {
		return nil, err
	}

	stream, err := a.Dialer.Dial(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return NewSession(jobID, stream, a.Fetcher, a.Options...), nil
}

// Start is a shorthand for an Analyzer without options.
func Start(ctx context.Context, submitter ports.JobSubmitter, dialer ports.StreamDialer, fetcher ports.ExplanationFetcher, item string) (*Session, error) {
	a := &Analyzer{Submitter: submitter, Dialer: dialer, Fetcher: fetcher}
	return a.Start(ctx, item)
}

// UserMessage renders err as the single inline message shown to users.
func UserMessage(err error) string {
	var te *ports.TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyItem):
		return "Please enter an item to analyze."
	case errors.As(err, &te) && te.Operation == "submit":
		return "Error: network"
	case errors.Is(err, ports.ErrTransport):
		return "Failed to connect to the analysis stream."
	case errors.Is(err, domain.ErrMalformedEvent):
		return "Invalid message from server."
	default:
		return "Error: " + err.Error()
	}
}
