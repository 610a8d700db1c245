package testutils

import (
	"context"
	"io"
	"sync"

	"github.com/ahrav/go-factorlens/internal/domain"
)

// StreamStep is one result returned by MockEventStream.Next: either an
// event or an error.
type StreamStep struct {
	Event domain.Event
	Err   error
}

// MockEventStream implements ports.EventStream over an in-memory queue.
// Steps are returned in the order they were sent. Once End has been called
// and the queue is drained, Next returns io.EOF. A terminal error sent
// with Fail is returned once and then repeated.
type MockEventStream struct {
	steps chan StreamStep

	mu       sync.Mutex
	ended    bool
	terminal error
	closed   chan struct{}

	closeOnce  sync.Once
	closeCalls int
}

// NewMockEventStream creates an open stream with room for buffer queued
// steps before Send blocks.
func NewMockEventStream(buffer int) *MockEventStream {
	return &MockEventStream{
		steps:  make(chan StreamStep, buffer),
		closed: make(chan struct{}),
	}
}

// NewScriptedStream creates a stream preloaded with steps that ends
// cleanly after the last one.
func NewScriptedStream(steps ...StreamStep) *MockEventStream {
	s := NewMockEventStream(len(steps))
	for _, st := range steps {
		s.steps <- st
	}
	s.End()
	return s
}

// Send queues an event.
func (s *MockEventStream) Send(ev domain.Event) { s.steps <- StreamStep{Event: ev} }

// SendErr queues a recoverable error, such as a malformed event.
func (s *MockEventStream) SendErr(err error) { s.steps <- StreamStep{Err: err} }

// Fail queues a terminal error; later calls to Next keep returning it.
func (s *MockEventStream) Fail(err error) {
	s.steps <- StreamStep{Err: &terminalErr{err}}
}

// End makes Next return io.EOF once the queue is drained.
func (s *MockEventStream) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		close(s.steps)
	}
}

// Next implements ports.EventStream.
func (s *MockEventStream) Next(ctx context.Context) (domain.Event, error) {
	s.mu.Lock()
	if s.terminal != nil {
		err := s.terminal
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, io.EOF
	case st, ok := <-s.steps:
		if !ok {
			return nil, io.EOF
		}
		if t, isTerminal := st.Err.(*terminalErr); isTerminal {
			s.mu.Lock()
			s.terminal = t.err
			s.mu.Unlock()
			return nil, t.err
		}
		return st.Event, st.Err
	}
}

// Close implements ports.EventStream.
func (s *MockEventStream) Close() error {
	s.mu.Lock()
	s.closeCalls++
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// CloseCalls returns how many times Close was called.
func (s *MockEventStream) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

type terminalErr struct{ err error }

func (t *terminalErr) Error() string { return t.err.Error() }
