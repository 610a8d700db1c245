package api

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a request.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed allows all requests to pass through normally.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects all requests until the cooldown expires.
	StateOpen

	// StateHalfOpen admits a single trial request; concurrent requests are
	// rejected until it finishes.
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreakerMetrics receives circuit breaker observations.
type CircuitBreakerMetrics interface {
	// RecordState updates the current circuit breaker state metric.
	RecordState(state CircuitBreakerState)

	// RecordTrip increments the counter of rejected requests.
	RecordTrip()

	// RecordSuccess increments the successful request counter.
	RecordSuccess()

	// RecordFailure increments the failed request counter.
	RecordFailure()
}

// CircuitBreaker opens after maxFailures consecutive errors and stays open
// for cooldownDuration. It then admits a single trial call: success closes the
// circuit, failure reopens it, and other calls are rejected meanwhile.
//
// A call's result only moves the breaker if the state has not changed
// since the call started.
type CircuitBreaker struct {
	mu               sync.RWMutex
	state            CircuitBreakerState
	generation       uint64
	trialInFlight    bool
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	lastFailure      time.Time
	now              func() time.Time
}

// ticket records the breaker state a call was admitted under.
type ticket struct {
	generation uint64
	trial      bool
}

// NewCircuitBreaker creates a circuit breaker with the specified configuration.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      maxFailures,
		cooldownDuration: cooldownDuration,
		now:              time.Now,
	}
}

// Call executes fn through the circuit breaker. If the circuit is open,
// Call returns ErrCircuitOpen without running fn. The lock is not held
// while fn runs, so concurrent calls proceed in parallel.
func (cb *CircuitBreaker) Call(fn func() error) error {
	return cb.call(fn, nil)
}

// call is Call with a classifier for errors that say nothing about the
// backend's health. Such errors leave the failure count and state alone.
func (cb *CircuitBreaker) call(fn func() error, neutral func(error) bool) error {
	t, err := cb.before()
	if err != nil {
		return err
	}
	err = fn()
	cb.after(t, err, err != nil && neutral != nil && neutral(err))
	return err
}

func (cb *CircuitBreaker) before() (ticket, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cooldownDuration {
			return ticket{}, ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
	case StateHalfOpen:
		if cb.trialInFlight {
			return ticket{}, ErrCircuitOpen
		}
	default:
		return ticket{generation: cb.generation}, nil
	}
	cb.trialInFlight = true
	return ticket{generation: cb.generation, trial: true}, nil
}

func (cb *CircuitBreaker) after(t ticket, err error, neutral bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if t.trial {
		cb.trialInFlight = false
	}
	if neutral || t.generation != cb.generation {
		return
	}

	if err == nil {
		cb.failureCount = 0
		cb.setState(StateClosed)
		return
	}
	cb.failureCount++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.setState(StateOpen)
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(s CircuitBreakerState) {
	if cb.state != s {
		cb.state = s
		cb.generation++
	}
}

// GetState returns the current circuit breaker state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// circuitBreakerFetcher stops calling a failing backend for a while.
type circuitBreakerFetcher struct {
	next    CoreFetcher
	cb      *CircuitBreaker
	metrics CircuitBreakerMetrics
}

// CircuitBreakerMiddleware creates middleware that implements the circuit
// breaker pattern.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return CircuitBreakerMiddlewareWithMetrics(maxFailures, cooldown, nil)
}

// CircuitBreakerMiddlewareWithMetrics creates circuit breaker middleware
// that reports to metrics.
func CircuitBreakerMiddlewareWithMetrics(maxFailures int, cooldown time.Duration, metrics CircuitBreakerMetrics) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)

	return func(next CoreFetcher) CoreFetcher {
		return &circuitBreakerFetcher{
			next:    next,
			cb:      cb,
			metrics: metrics,
		}
	}
}

// Fetch executes the fetch through the circuit breaker.
// Failures caused by the caller's own cancellation do not count.
func (c *circuitBreakerFetcher) Fetch(ctx context.Context, item string) (string, error) {
	var text string
	err := c.cb.call(func() error {
		var err error
		text, err = c.next.Fetch(ctx, item)
		return err
	}, func(err error) bool { return callerCancelled(ctx, err) })

	if c.metrics != nil {
		switch {
		case callerCancelled(ctx, err):
		case err == nil:
			c.metrics.RecordSuccess()
		case errors.Is(err, ErrCircuitOpen):
			c.metrics.RecordTrip()
		default:
			c.metrics.RecordFailure()
		}
		c.metrics.RecordState(c.cb.GetState())
	}

	return text, err
}

func callerCancelled(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) && ctx.Err() != nil
}
