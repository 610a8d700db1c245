package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ahrav/go-factorlens/internal/domain"
	"github.com/ahrav/go-factorlens/internal/ports"
)

var upgrader = websocket.Upgrader{}

// newEventServer starts a WebSocket server that reads the join message,
// reports it on joined and then runs script against the connection.
func newEventServer(t *testing.T, joined chan<- domain.JoinMessage, script func(ws *websocket.Conn)) (string, func()) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		var join domain.JoinMessage
		if err := ws.ReadJSON(&join); err != nil {
			return
		}
		if joined != nil {
			joined <- join
		}
		script(ws)
	}))

	return "ws" + strings.TrimPrefix(srv.URL, "http"), srv.Close
}

func send(ws *websocket.Conn, frames ...string) {
	for _, f := range frames {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			return
		}
	}
}

// drain blocks until the peer goes away.
func drain(ws *websocket.Conn) {
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func TestConn_JoinAndEventsInOrder(t *testing.T) {
	// Given a server that streams a mix of valid, malformed and unknown frames
	joined := make(chan domain.JoinMessage, 1)
	url, stop := newEventServer(t, joined, func(ws *websocket.Conn) {
		send(ws,
			`{"type":"partial","data":{"rank":1,"name":"CPU","effect_short":"Speed","direction":"increases"}}`,
			`not json`,
			`{"type":"progress"}`,
			`{"type":"final","data":[{"rank":1,"name":"CPU","effect_short":"Speed","direction":"increases"}]}`,
		)
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		drain(ws)
	})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// When dialing and reading every frame
	conn, err := Dial(ctx, url, "job-7")
	require.NoError(t, err)
	defer conn.Close()

	// Then the join message carries the job id
	select {
	case j := <-joined:
		assert.Equal(t, domain.NewJoinMessage("job-7"), j)
	case <-ctx.Done():
		t.Fatal("join message not received")
	}
	assert.Equal(t, "job-7", conn.JobID())

	ev, err := conn.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EventPartial, ev.Type())

	_, err = conn.Next(ctx)
	assert.ErrorIs(t, err, domain.ErrMalformedEvent, "malformed frame is reported but recoverable")

	ev, err = conn.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EventType("progress"), ev.Type())

	ev, err = conn.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EventFinal, ev.Type())

	// And a normal close ends the stream cleanly
	_, err = conn.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	_, err = conn.Next(ctx)
	assert.ErrorIs(t, err, io.EOF, "terminal error is sticky")
}

func TestConn_AbruptDisconnectIsTransportError(t *testing.T) {
	url, stop := newEventServer(t, nil, func(ws *websocket.Conn) {
		send(ws, `{"type":"partial","data":{"rank":1,"name":"A","effect_short":"x"}}`)
		// Drop the TCP connection without a close frame.
		_ = ws.UnderlyingConn().Close()
	})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, url, "job")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Next(ctx)
	require.NoError(t, err)

	_, err = conn.Next(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrTransport)

	var te *ports.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "read", te.Operation)
	assert.Equal(t, url, te.Endpoint)
}

func TestDial_FailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, err := Dial(context.Background(), url, "job")

	assert.Nil(t, conn)
	var te *ports.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "dial", te.Operation)
	assert.Contains(t, err.Error(), "status 404")
}

func TestConn_NextHonorsContext(t *testing.T) {
	url, stop := newEventServer(t, nil, drain)
	defer stop()

	conn, err := Dial(context.Background(), url, "job")
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = conn.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConn_CloseIsIdempotentAndLeakFree(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	url, stop := newEventServer(t, nil, drain)

	dialer := NewDialer(url, WithReadLimit(4096), WithHandshakeTimeout(time.Second))
	stream, err := dialer.Dial(context.Background(), "job")
	require.NoError(t, err)

	// When closing twice
	require.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())

	// Then further reads report a clean end
	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	stop()
}
