package transport

import (
	"sync"

	"github.com/go-logr/logr"

	"github.com/MaTriXy/wasync/decoder"
	"github.com/MaTriXy/wasync/future"
	"github.com/MaTriXy/wasync/internal/logger"
	"github.com/MaTriXy/wasync/request"
)

// Base implements the status bookkeeping and future wiring shared by every
// transport implementation, so each concrete transport only has to embed
// it and implement the read loop and send path (spec §4.5, §5 "single-writer
// discipline").
type Base struct {
	mu sync.Mutex

	name   Name
	status Status
	lastErr error
	errorHandled bool

	rootFuture      *future.Future
	connectedFuture *future.Future

	closed bool

	handle any
	req    *request.Request

	Log logr.Logger
}

// SetRequest binds req so the open/reopened/close/error lifecycle
// transitions below can run the decoder/dispatch pipeline for the
// corresponding decoder.Event (spec §4.4, §4.5). A Base with no request
// bound (as in most of this package's own unit tests) simply skips
// dispatch.
func (b *Base) SetRequest(req *request.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.req = req
}

// SetHandle stores the value (typically the owning *socket.Socket) passed
// as the leading argument to callbacks that declare one.
func (b *Base) SetHandle(h any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handle = h
}

// Handle returns the value set by SetHandle.
func (b *Base) Handle() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// NewBase returns a Base in the Init state for the named transport.
func NewBase(name Name) *Base {
	return &Base{
		name:   name,
		status: Init,
		Log:    logger.Get(string(name)),
	}
}

// Name implements Transport.
func (b *Base) Name() Name { return b.name }

// Status implements Transport.
func (b *Base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// RegisterFunction implements Transport; most transports have no use for
// it beyond bookkeeping since function registration flows through the
// shared dispatch.Registry instead.
func (b *Base) RegisterFunction(any) {}

// SetFuture implements Transport.
func (b *Base) SetFuture(f *future.Future) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rootFuture = f
}

// SetConnectedFuture implements Transport.
func (b *Base) SetConnectedFuture(f *future.Future) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectedFuture = f
}

// MarkOpen transitions INIT -> OPEN and unblocks Socket.open and
// Socket.fire waiters (spec §4.5).
func (b *Base) MarkOpen() {
	b.mu.Lock()
	b.status = Open
	rf, cf := b.rootFuture, b.connectedFuture
	req, handle := b.req, b.handle
	b.mu.Unlock()

	if cf != nil {
		cf.Done(nil)
	}
	if rf != nil {
		rf.Done(nil)
	}

	if req != nil {
		Deliver(req, handle, decoder.EventOpen, nil, b)
	}
}

// MarkReopened transitions OPEN -> REOPENED for long-polling re-arm.
func (b *Base) MarkReopened() {
	b.mu.Lock()
	b.status = Reopened
	req, handle := b.req, b.handle
	b.mu.Unlock()

	if req != nil {
		Deliver(req, handle, decoder.EventReopened, nil, b)
	}
}

// MarkReconnected transitions REOPENED -> OPEN once the next poll is
// issued.
func (b *Base) MarkReconnected() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = Open
}

// Error implements Transport: records err, transitions to Error, dispatches
// decoder.EventError to any registered "error" handler — giving it the
// chance to call SetErrorHandled(true) before the check below runs — and
// relays err to the connected/root futures unless that handler consumed it
// (spec §4.5, §7).
func (b *Base) Error(err error) {
	b.mu.Lock()
	b.status = Error
	b.lastErr = err
	req, handle := b.req, b.handle
	rf, cf := b.rootFuture, b.connectedFuture
	b.mu.Unlock()

	b.Log.Error(err, "transport error", "transport", string(b.name))

	if req != nil {
		Deliver(req, handle, decoder.EventError, err, b)
	}

	if b.ErrorHandled() {
		return
	}
	if cf != nil {
		cf.IOException(err)
	}
	if rf != nil {
		rf.IOException(err)
	}
}

// ErrorHandled implements Transport.
func (b *Base) ErrorHandled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorHandled
}

// SetErrorHandled marks the last error as consumed by a user function,
// suppressing its propagation to the root future (spec §4.5, §7).
func (b *Base) SetErrorHandled(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorHandled = v
}

// OnThrowable implements Transport as the generic upcall path; concrete
// transports may override it, but the default policy is the same as
// Error.
func (b *Base) OnThrowable(err error) {
	b.Error(err)
}

// MarkClosed transitions to CLOSE and reports whether this call performed
// the transition (idempotency per spec §4.5 and testable property 3): the
// first caller gets true and should tear down the network resource,
// subsequent callers get false.
func (b *Base) MarkClosed() bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.closed = true
	b.status = Close
	req, handle := b.req, b.handle
	b.mu.Unlock()

	if req != nil {
		Deliver(req, handle, decoder.EventClose, nil, b)
	}
	return true
}

// ClosedByPeer transitions OPEN -> CLOSE for a graceful server-initiated
// disconnect (clean EOF, a normal WebSocket close frame) rather than
// ERROR, implementing spec §4.5's separate OPEN --server-close/EOF--> CLOSE
// transition. Callers are expected to only reach here once the transport
// had actually opened; a disconnect before that point is still a failure
// to connect and should go through Error instead.
func (b *Base) ClosedByPeer() {
	if !b.MarkClosed() {
		return
	}
	b.Log.Info("transport closed by peer", "transport", string(b.name))
}
