package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ahrav/go-factorlens/internal/domain"
	"github.com/ahrav/go-factorlens/internal/ports"
)

// Defaults applied when no option overrides them.
const (
	DefaultReadLimit        int64 = 1 << 20
	DefaultHandshakeTimeout       = 10 * time.Second
	closeWriteTimeout             = time.Second
)

// Compile-time interface checks.
var (
	_ ports.EventStream  = (*Conn)(nil)
	_ ports.StreamDialer = (*Dialer)(nil)
)

type options struct {
	logger           *zap.Logger
	readLimit        int64
	handshakeTimeout time.Duration
	header           http.Header
}

// Option configures a Conn.
type Option func(*options)

// WithLogger sets the logger used for connection lifecycle messages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithReadLimit caps the size of a single inbound frame.
func WithReadLimit(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.readLimit = n
		}
	}
}

// WithHandshakeTimeout bounds the opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithHeader adds request headers to the opening handshake.
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h.Clone() }
}

func newOptions(opts []Option) options {
	o := options{
		logger:           zap.NewNop(),
		readLimit:        DefaultReadLimit,
		handshakeTimeout: DefaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Conn is an open event channel for one job. Next must be called from a
// single goroutine; Close may be called from any goroutine.
type Conn struct {
	ws       *websocket.Conn
	endpoint string
	jobID    string
	logger   *zap.Logger

	frames  chan []byte
	done    chan struct{}
	readErr error // set by readLoop before frames is closed

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to url, subscribes to jobID with a join message and starts
// reading frames. The returned Conn must be closed by the caller.
func Dial(ctx context.Context, url, jobID string, opts ...Option) (*Conn, error) {
	o := newOptions(opts)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: o.handshakeTimeout,
	}
	ws, resp, err := dialer.DialContext(ctx, url, o.header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, ports.NewTransportError(url, "dial", err)
	}
	ws.SetReadLimit(o.readLimit)

	join, err := EncodeJoin(jobID)
	if err != nil {
		_ = ws.Close()
		return nil, ports.NewTransportError(url, "join", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.SetWriteDeadline(deadline)
	}
	if err := ws.WriteMessage(websocket.TextMessage, join); err != nil {
		_ = ws.Close()
		return nil, ports.NewTransportError(url, "join", err)
	}
	_ = ws.SetWriteDeadline(time.Time{})

	c := &Conn{
		ws:       ws,
		endpoint: url,
		jobID:    jobID,
		logger:   o.logger.With(zap.String("job_id", jobID)),
		frames:   make(chan []byte),
		done:     make(chan struct{}),
	}
	go c.readLoop()

	c.logger.Debug("event channel connected", zap.String("endpoint", url))
	return c, nil
}

// JobID returns the job this connection is subscribed to.
func (c *Conn) JobID() string { return c.jobID }

func (c *Conn) readLoop() {
	defer close(c.frames)
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = c.classify(err)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		select {
		case c.frames <- data:
		case <-c.done:
			c.readErr = io.EOF
			return
		}
	}
}

func (c *Conn) classify(err error) error {
	select {
	case <-c.done:
		return io.EOF
	default:
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return ports.NewTransportError(c.endpoint, "read", err)
}

// Next returns the next decoded event. A malformed frame yields a
// *domain.EventError and the connection stays usable. Once the channel
// ends, every call returns the same terminal error: io.EOF for a clean
// close, or a *ports.TransportError.
func (c *Conn) Next(ctx context.Context) (domain.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, io.EOF
	case data, ok := <-c.frames:
		if !ok {
			return nil, c.readErr
		}
		ev, err := DecodeEvent(data)
		if err != nil {
			c.logger.Debug("dropping malformed frame", zap.Error(err))
			return nil, err
		}
		return ev, nil
	}
}

// Close sends a close frame and tears down the connection. Subsequent
// calls return the first call's result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug("close frame not sent", zap.Error(err))
		}
		c.closeErr = c.ws.Close()
		c.logger.Debug("event channel closed")
	})
	return c.closeErr
}

// Dialer opens Conns against a fixed endpoint.
type Dialer struct {
	URL  string
	Opts []Option
}

// NewDialer returns a Dialer for url.
func NewDialer(url string, opts ...Option) *Dialer {
	return &Dialer{URL: url, Opts: opts}
}

// Dial implements ports.StreamDialer.
func (d *Dialer) Dial(ctx context.Context, jobID string) (ports.EventStream, error) {
	c, err := Dial(ctx, d.URL, jobID, d.Opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}
