// Package socket implements the uniform Socket abstraction presented to
// applications: a transport-independent open/fire/on/close/status API
// bridging onto whichever of the four wire transports negotiation settles
// on (spec §3 "Socket", §4.6, §6 "Socket operations").
package socket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-logr/logr"

	"github.com/MaTriXy/wasync/decoder"
	"github.com/MaTriXy/wasync/dispatch"
	"github.com/MaTriXy/wasync/frame"
	"github.com/MaTriXy/wasync/future"
	"github.com/MaTriXy/wasync/internal/logger"
	"github.com/MaTriXy/wasync/request"
	"github.com/MaTriXy/wasync/transport"
	"github.com/MaTriXy/wasync/transport/httpshared"
	"github.com/MaTriXy/wasync/transport/longpolling"
	"github.com/MaTriXy/wasync/transport/sse"
	"github.com/MaTriXy/wasync/transport/streaming"
	"github.com/MaTriXy/wasync/transport/websocket"
)

var log = logger.Get("socket")

// ErrInvalidStatus is returned (wrapped with the offending status) by Fire
// when the WebSocket transport has already reached CLOSE or ERROR (spec
// §4.6 step 3, §7).
var ErrInvalidStatus = errors.New("socket: invalid status for write")

// ErrTimeout is returned (wrapped around the underlying context error) when
// a connect or a write fails to complete within its configured deadline
// (spec §4.5 ConnectTimeout, §4.6 step 4's write timeout, §7).
var ErrTimeout = errors.New("socket: timed out")

// dialer is satisfied by every concrete transport's Dial method; Dial is
// not part of transport.Transport because its signature only matters to
// the code that opens the connection.
type dialer interface {
	transport.Transport
	Dial(ctx context.Context) error
	SetHandle(h any)
}

// sender is satisfied only by the WebSocket transport; the HTTP-based
// transports write over an independent POST instead (spec §4.5, §4.6).
type sender interface {
	Send(frame.Value) error
}

// Socket is the single entry point applications hold after Open succeeds.
// Its decoder chain and function registry are the ones aliased with the
// underlying Transport (spec §3, §5 "Shared resources").
type Socket struct {
	req       *request.Request
	transport dialer

	rootFuture      *future.Future
	connectedFuture *future.Future

	httpClient *http.Client
	log        logr.Logger
}

// Open negotiates a transport from req.Transports in order, returning once
// the chosen transport reaches OPEN or every candidate has failed (spec
// §4.5, §6 "open", §8 property 4).
func Open(ctx context.Context, req *request.Request) (*Socket, error) {
	if len(req.Transports) == 0 {
		return nil, fmt.Errorf("socket: request has no enabled transports")
	}

	s := &Socket{
		req:        req,
		httpClient: &http.Client{Timeout: req.RequestTimeout},
		log:        log.WithValues("socket", req.ID),
	}

	var lastErr error
	for _, name := range req.Transports {
		t := newTransport(name, req)

		rootFuture := future.New(s)
		connectedFuture := future.New(s)
		t.SetFuture(rootFuture)
		t.SetConnectedFuture(connectedFuture)
		t.SetHandle(s)

		connectCtx := ctx
		if req.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(ctx, req.ConnectTimeout)
			defer cancel()
		}

		// Watch the caller's own ctx (not connectCtx, which may expire
		// well before the caller actually gives up) so that cancelling
		// Open unblocks this candidate's future the same way a fatal I/O
		// error would, rather than leaving it to resolve or rot silently
		// in the background (spec §4.7 "ioException").
		watchDone := make(chan struct{})
		go watchInterrupt(ctx, rootFuture, watchDone)

		dialErr := t.Dial(connectCtx)
		var openErr error
		if dialErr == nil {
			_, openErr = rootFuture.Get(connectCtx)
		}
		close(watchDone)

		if dialErr != nil {
			err := dialErr
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			lastErr = err
			s.log.Info("transport dial failed, trying next candidate", "transport", string(name), "error", err.Error())
			continue
		}

		if openErr != nil {
			err := openErr
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			lastErr = err
			_ = t.Close()
			s.log.Info("transport failed to open, trying next candidate", "transport", string(name), "error", err.Error())
			continue
		}

		s.transport = t
		s.rootFuture = rootFuture
		s.connectedFuture = connectedFuture
		return s, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("socket: no transport could be opened")
	}
	return nil, lastErr
}

// watchInterrupt marks f terminal with ErrInterrupted if ctx is cancelled
// before stop closes, giving any concurrent waiter on f (not just the one
// observing ctx directly) a way to unblock instead of hanging past the
// caller giving up on Open (spec §4.7 "ioException").
func watchInterrupt(ctx context.Context, f *future.Future, stop <-chan struct{}) {
	select {
	case <-ctx.Done():
		f.IOException(fmt.Errorf("%w: %v", future.ErrInterrupted, ctx.Err()))
	case <-stop:
	}
}

func newTransport(name request.Transport, req *request.Request) dialer {
	switch name {
	case request.WebSocket:
		return websocket.New(req)
	case request.Streaming:
		return streaming.New(req)
	case request.SSE:
		return sse.New(req)
	default:
		return longpolling.New(req)
	}
}

// Status reports the underlying transport's position in the state machine
// (spec §3, §6 "status").
func (s *Socket) Status() transport.Status {
	return s.transport.Status()
}

// On registers fn to be invoked for inbound messages whose event name
// equals key (spec §4.4, §6 "on").
func (s *Socket) On(key string, fn any) error {
	w, err := dispatch.OnEvent(key, fn)
	if err != nil {
		return err
	}
	s.req.Registry.Register(w)
	return nil
}

// OnType registers fn for payloads assignable to sample's type (spec
// §4.4).
func (s *Socket) OnType(sample any, fn any) error {
	w, err := dispatch.OnType(sample, fn)
	if err != nil {
		return err
	}
	s.req.Registry.Register(w)
	return nil
}

// OnAny registers fn as a wildcard wrapper, matching every dispatched
// message regardless of event name or type (spec §3 "FunctionWrapper").
func (s *Socket) OnAny(fn any) error {
	w, err := dispatch.On(fn)
	if err != nil {
		return err
	}
	s.req.Registry.Register(w)
	return nil
}

// Close idempotently tears down the transport (spec §6 "close", §8
// property 3).
func (s *Socket) Close() error {
	return s.transport.Close()
}

// MarkErrorHandled acknowledges a dispatched "error" callback, suppressing
// further propagation of the transport's last error to the blocked
// Open/Fire callers (spec §4.5, §7). A callback registered via
// s.On("error", fn) should call this explicitly once it has dealt with the
// error itself.
func (s *Socket) MarkErrorHandled() {
	s.transport.SetErrorHandled(true)
}

// Fire blocks until the transport is connected (if not already), then runs
// the encoder chain and sends the result, satisfying spec §4.6 and §6
// "fire".
func (s *Socket) Fire(message any) (*future.Future, error) {
	if !s.connectedFuture.IsDone() {
		if _, err := s.connectedFuture.Get(context.Background()); err != nil {
			return s.rootFuture, err
		}
	}
	return s.write(message)
}

// write implements spec §4.6 steps 1-5.
func (s *Socket) write(message any) (*future.Future, error) {
	encoded, err := s.req.Encoders.Run(message)
	if err != nil {
		return s.rootFuture, err
	}

	v, err := frame.Classify(encoded)
	if err != nil {
		return s.rootFuture, err
	}

	if ws, ok := s.transport.(sender); ok {
		status := s.transport.Status()
		if status == transport.Close || status == transport.Error {
			invalidErr := fmt.Errorf("%w: Invalid Socket Status %s", ErrInvalidStatus, status)
			s.transport.Error(invalidErr)
			return s.rootFuture, invalidErr
		}
		if err := ws.Send(v); err != nil {
			s.transport.Error(err)
			return s.rootFuture, err
		}
		return s.rootFuture.FinishOrThrowException()
	}

	return s.writeHTTP(v)
}

// writeHTTP implements the non-WebSocket branch of spec §4.6 step 4: an
// independent POST carrying the encoded body, with any non-empty response
// fed back through the decoder pipeline as a synthetic MESSAGE event.
func (s *Socket) writeHTTP(v frame.Value) (*future.Future, error) {
	var body io.Reader
	switch v.Kind {
	case frame.Text:
		body = strings.NewReader(v.Text)
	case frame.Binary:
		body = bytes.NewReader(v.Bytes)
	case frame.ByteStream, frame.CharStream:
		body = v.Stream
	default:
		return s.rootFuture, fmt.Errorf("%w for %v", frame.ErrNoEncoder, v.Kind)
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if s.req.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.req.RequestTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(s.req.Method), httpshared.BuildURL(s.req), body)
	if err != nil {
		return s.rootFuture, err
	}
	httpshared.ApplyHeaders(httpReq, s.req)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			s.rootFuture.IOException(fmt.Errorf("%w: %v", ErrTimeout, err))
			return s.rootFuture, nil
		}
		s.log.Error(err, "http write failed")
		return s.rootFuture.FinishOrThrowException()
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.log.Error(err, "http write response read failed")
		return s.rootFuture.FinishOrThrowException()
	}

	if len(respBody) > 0 {
		s.deliver(decoder.EventMessage, string(respBody))
	}

	return s.rootFuture.FinishOrThrowException()
}

// deliver runs one synthetic (event, payload) pair through the decoder
// pipeline and, unless aborted, function dispatch — the same logic
// transport.Deliver performs for inbound network messages, reused here for
// the HTTP write path's response body (spec §4.6 step 4).
func (s *Socket) deliver(event decoder.Event, payload any) {
	out, aborted, err := s.req.Decoders.Run(event, payload)
	if err != nil {
		s.log.V(1).Info("decoder stage error", "error", err.Error())
	}
	if aborted {
		return
	}

	var declaredType reflect.Type
	if out != nil {
		declaredType = reflect.TypeOf(out)
	}
	dispatch.Dispatch(s, s.req.Registry, declaredType, out, event.String(), s.req.Resolver)
}
