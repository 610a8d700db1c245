package domain

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// FactorAggregator owns the ordered, deduplicated factor set of a single
// analysis job. It applies partial and final stream events and exposes
// read-only snapshots sorted ascending by rank.
//
// Apply is atomic with respect to every other method: the aggregator is
// guarded by a mutex so a multi-goroutine consumer observes each event
// either fully applied or not at all.
//
// Factors sharing a rank but differing in name are both kept; between
// them, insertion order is preserved.
type FactorAggregator struct {
	mu sync.RWMutex

	jobID string

	// factors is kept sorted ascending by rank at all times.
	factors []Factor
	keys    map[string]struct{}

	// inFlight is the identity key of the most recent partial factor and
	// drives the typing indicator until superseded or finalized.
	inFlight  string
	finalized bool
	disposed  bool
}

// NewFactorAggregator creates an empty aggregator for jobID.
func NewFactorAggregator(jobID string) *FactorAggregator {
	return &FactorAggregator{
		jobID: jobID,
		keys:  make(map[string]struct{}),
	}
}

// JobID returns the identifier of the job this aggregator belongs to.
func (a *FactorAggregator) JobID() string { return a.jobID }

// Apply applies one stream event.
//
// A partial event inserts its factor in rank order unless a factor with the
// same identity key already exists, in which case it is a no-op. A final
// event replaces the whole collection and ends the streaming phase. Unknown
// events are ignored.
//
// Apply never panics on bad input and never calls methods on ev. Malformed
// events (including pointer and foreign Event implementations), partial
// events that arrive after the final event, and events applied after
// Dispose are reported as an *EventError and leave the state untouched.
// A nil error therefore means ev is one of the value event types.
func (a *FactorAggregator) Apply(ev Event) error {
	switch e := ev.(type) {
	case nil:
		return NewEventError("", fmt.Errorf("%w: nil event", ErrMalformedEvent))
	case PartialEvent:
		return a.applyPartial(e.Factor)
	case *PartialEvent:
		return NewEventError(EventPartial, fmt.Errorf("%w: pointer event %T", ErrMalformedEvent, ev))
	case FinalEvent:
		return a.applyFinal(e.Factors)
	case *FinalEvent:
		return NewEventError(EventFinal, fmt.Errorf("%w: pointer event %T", ErrMalformedEvent, ev))
	case UnknownEvent:
		return nil
	default:
		// Foreign Event implementations cannot be trusted to report their
		// own tag without panicking, so they are rejected.
		return NewEventError("", fmt.Errorf("%w: unexpected payload %T", ErrMalformedEvent, ev))
	}
}

func (a *FactorAggregator) applyPartial(f Factor) error {
	if err := f.Validate(); err != nil {
		return NewEventError(EventPartial, fmt.Errorf("%w: %w", ErrMalformedEvent, err))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return NewEventError(EventPartial, ErrDisposed)
	}
	if a.finalized {
		return NewEventError(EventPartial, ErrStreamFinalized)
	}

	key := f.Key()
	if _, exists := a.keys[key]; exists {
		return nil
	}

	// Insert after any factor with an equal rank to keep insertion order
	// among ties.
	i := sort.Search(len(a.factors), func(i int) bool { return a.factors[i].Rank > f.Rank })
	a.factors = slices.Insert(a.factors, i, f)
	a.keys[key] = struct{}{}
	a.inFlight = key

	return nil
}

func (a *FactorAggregator) applyFinal(factors []Factor) error {
	next := make([]Factor, 0, len(factors))
	keys := make(map[string]struct{}, len(factors))
	for i, f := range factors {
		if err := f.Validate(); err != nil {
			return NewEventError(EventFinal, fmt.Errorf("%w: factor %d: %w", ErrMalformedEvent, i, err))
		}
		// The collection's keys are unique; a repeated key in the final
		// list keeps its first occurrence.
		key := f.Key()
		if _, dup := keys[key]; dup {
			continue
		}
		keys[key] = struct{}{}
		next = append(next, f)
	}
	slices.SortStableFunc(next, func(x, y Factor) int { return x.Rank - y.Rank })

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return NewEventError(EventFinal, ErrDisposed)
	}

	a.factors = next
	a.keys = keys
	a.inFlight = ""
	a.finalized = true

	return nil
}

// Snapshot returns a copy of the current factor sequence, sorted ascending
// by rank. Mutating the returned slice does not affect the aggregator.
func (a *FactorAggregator) Snapshot() []Factor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.factors)
}

// View is a consistent point-in-time copy of an aggregator's state.
type View struct {
	Factors     []Factor
	InFlightKey string
	Finalized   bool
}

// View returns the factors, in-flight key and finalized flag read under
// one lock, so they always describe the same moment.
func (a *FactorAggregator) View() View {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return View{
		Factors:     slices.Clone(a.factors),
		InFlightKey: a.inFlight,
		Finalized:   a.finalized,
	}
}

// Len returns the number of factors currently held.
func (a *FactorAggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.factors)
}

// InFlightKey returns the identity key of the factor currently streaming,
// if any. It is cleared by the final event.
func (a *FactorAggregator) InFlightKey() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.inFlight, a.inFlight != ""
}

// Finalized reports whether the final event has been applied.
func (a *FactorAggregator) Finalized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.finalized
}

// Dispose tears the aggregator down and discards its factors. Every
// subsequent Apply fails with ErrDisposed.
func (a *FactorAggregator) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disposed = true
	a.factors = nil
	a.keys = make(map[string]struct{})
	a.inFlight = ""
}

// Disposed reports whether Dispose has been called.
func (a *FactorAggregator) Disposed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.disposed
}
