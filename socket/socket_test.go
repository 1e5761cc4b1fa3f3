package socket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaTriXy/wasync/dispatch"
	"github.com/MaTriXy/wasync/future"
	"github.com/MaTriXy/wasync/request"
	"github.com/MaTriXy/wasync/transport"
)

func TestOpenRejectsRequestWithNoTransports(t *testing.T) {
	req, err := request.NewBuilder().URI("http://example.com").Build()
	require.NoError(t, err)

	_, err = Open(context.Background(), req)
	assert.Error(t, err)
}

// S3 — write string over WebSocket: status OPEN, Fire("hello") -> exactly
// one text frame "hello" transmitted.
func TestSocketFireSendsOverWebSocket(t *testing.T) {
	received := make(chan string, 1)
	upgrader := gorilla.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		received <- string(data)
	}))
	t.Cleanup(srv.Close)

	req, err := request.NewBuilder().
		URI(srv.URL).
		Transport(request.WebSocket).
		Build()
	require.NoError(t, err)

	s, err := Open(context.Background(), req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Fire("hello")
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "hello", msg)
	case <-time.After(time.Second):
		t.Fatal("server never received the frame")
	}
}

// S4 — write on closed WebSocket: status CLOSE, Fire("hi") -> no frame
// transmitted; the error surfaces containing "Invalid Socket Status CLOSE".
func TestSocketFireOnClosedWebSocketFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := gorilla.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	req, err := request.NewBuilder().
		URI(srv.URL).
		Transport(request.WebSocket).
		Build()
	require.NoError(t, err)

	s, err := Open(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Equal(t, transport.Close, s.Status())

	_, err = s.Fire("hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Socket Status CLOSE")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// A transport that connects but never produces its first message should
// surface ErrTimeout once ConnectTimeout elapses, checkable via errors.Is
// per spec §7.
func TestOpenReturnsErrTimeoutWhenConnectTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(time.Second)
	}))
	t.Cleanup(srv.Close)

	req, err := request.NewBuilder().
		URI(srv.URL).
		Transport(request.Streaming).
		ConnectTimeout(10 * time.Millisecond).
		Build()
	require.NoError(t, err)

	_, err = Open(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

// A write whose response doesn't arrive before RequestTimeout records
// ErrTimeout on the root future rather than failing Fire synchronously
// (spec §4.6 step 4, §7).
func TestSocketFireRecordsErrTimeoutOnWriteDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			time.Sleep(10 * time.Millisecond)
		case http.MethodPost:
			time.Sleep(100 * time.Millisecond)
			fmt.Fprint(w, "too-late")
		}
	}))
	t.Cleanup(srv.Close)

	req, err := request.NewBuilder().
		URI(srv.URL).
		Transport(request.LongPolling).
		MaxRequest(-1).
		RequestTimeout(10 * time.Millisecond).
		Build()
	require.NoError(t, err)

	s, err := Open(context.Background(), req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	f, err := s.Fire("ping")
	require.NoError(t, err)

	_, err = f.Get(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

// An "error" callback that calls MarkErrorHandled must mark the transport's
// error as consumed, the flag Base.Error checks before relaying an error to
// the futures — the "user function consumed it" half of the error-handling
// contract (spec §4.5, §7).
func TestSocketOnErrorCanSuppressPropagationViaMarkErrorHandled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := gorilla.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	req, err := request.NewBuilder().
		URI(srv.URL).
		Transport(request.WebSocket).
		Build()
	require.NoError(t, err)

	s, err := Open(context.Background(), req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.On("error", func(sock *Socket, _ error) {
		sock.MarkErrorHandled()
	}))

	s.transport.Error(fmt.Errorf("boom"))

	assert.Equal(t, transport.Error, s.Status())
	assert.True(t, s.transport.ErrorHandled(), "the error callback's MarkErrorHandled must mark the error as consumed")
}

// watchInterrupt is the mechanism ErrInterrupted relies on: cancelling ctx
// before stop closes must mark f terminal so a concurrent waiter unblocks
// rather than hanging past the caller giving up.
func TestWatchInterruptMarksFutureWithErrInterrupted(t *testing.T) {
	f := future.New(noopSocket{})
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan struct{})

	done := make(chan struct{})
	go func() {
		watchInterrupt(ctx, f, stop)
		close(done)
	}()

	cancel()
	<-done

	_, err := f.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, future.ErrInterrupted)
}

func TestWatchInterruptNoOpWhenStoppedFirst(t *testing.T) {
	f := future.New(noopSocket{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan struct{})
	close(stop)

	watchInterrupt(ctx, f, stop)

	assert.False(t, f.IsDone())
}

type noopSocket struct{}

func (noopSocket) Fire(message any) (*future.Future, error) { return nil, nil }
func (noopSocket) Close() error                             { return nil }

// S5 — HTTP write round-trip: long-polling transport, Fire("ping") sends a
// POST with body "ping"; server responds "pong"; the user MESSAGE callback
// receives "pong".
func TestSocketFireRoundTripsOverLongPolling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			// Each poll idles briefly and returns no data, simulating a
			// long-poll connection with nothing new to deliver.
			time.Sleep(10 * time.Millisecond)
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "ping", string(body))
			fmt.Fprint(w, "pong")
		}
	}))
	t.Cleanup(srv.Close)

	req, err := request.NewBuilder().
		URI(srv.URL).
		Transport(request.LongPolling).
		MaxRequest(-1).
		Build()
	require.NoError(t, err)

	var got string
	done := make(chan struct{})
	w, err := dispatch.OnEvent("message", func(s string) {
		got = s
		close(done)
	})
	require.NoError(t, err)
	req.Registry.Register(w)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s, err := Open(ctx, req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Fire("ping")
	require.NoError(t, err)

	select {
	case <-done:
		assert.Equal(t, "pong", got)
	case <-time.After(time.Second):
		t.Fatal("never received the pong response")
	}
}
