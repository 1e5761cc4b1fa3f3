// Package future implements the connection-gate latch described in spec
// §4.7: a one-shot completion primitive that unblocks Socket.open once the
// transport connects, or relays a fatal I/O error to any blocked caller.
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrInterrupted is the Go analogue of Java's InterruptedIOException — the
// documented means of unblocking an in-progress Open (spec §4.7).
var ErrInterrupted = errors.New("future: interrupted")

// Socket is the minimal surface a Future needs from its owning socket to
// implement Fire and Close as forwarding calls (spec §4.7).
type Socket interface {
	Fire(message any) (*Future, error)
	Close() error
}

// Future is created once per Socket.open and is the carrier for both the
// connected-success signal and any fatal I/O error (spec §3 Future).
type Future struct {
	mu     sync.Mutex
	done   chan struct{}
	once   sync.Once
	err    error
	result any
	owner  Socket
}

// New returns a Future bound to owner, which backs Fire and Close.
func New(owner Socket) *Future {
	return &Future{
		done:  make(chan struct{}),
		owner: owner,
	}
}

// Done marks the future successfully complete with result (typically the
// Socket itself). Repeated calls, and calls after IOException, are no-ops
// — at most one terminal event is observable (spec §3 invariant).
func (f *Future) Done(result any) {
	f.once.Do(func() {
		f.mu.Lock()
		f.result = result
		f.mu.Unlock()
		close(f.done)
	})
}

// IOException unblocks any waiter with a failure. Repeated calls are
// no-ops once the future is already terminal.
func (f *Future) IOException(err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.done)
	})
}

// Get blocks until Done or IOException, or ctx is cancelled. After Done,
// subsequent calls return immediately. After IOException, subsequent calls
// return the recorded error immediately.
func (f *Future) Get(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsDone reports whether a terminal event has already landed.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the recorded I/O error, if any, without blocking.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Fire is a convenience forwarding to the owning Socket (spec §4.7).
func (f *Future) Fire(message any) (*Future, error) {
	return f.owner.Fire(message)
}

// Close forwards to the owning Socket (spec §4.7).
func (f *Future) Close() error {
	return f.owner.Close()
}

// FinishOrThrowException reports the terminal state without blocking: it
// returns f and the recorded error if IOException has landed, otherwise f,
// nil. The Socket runtime calls it at the end of every write — after a
// WebSocket send, and after an HTTP write's response has been read (spec
// §9 design note on finishOrThrowException semantics).
func (f *Future) FinishOrThrowException() (*Future, error) {
	if err := f.Err(); err != nil {
		return f, err
	}
	return f, nil
}
