// Package transport defines the shared contract every wire transport
// (WebSocket, HTTP streaming, SSE, long-polling) implements, and the
// status state machine common to all of them (spec §4.5, §6).
package transport

import (
	"fmt"

	"github.com/MaTriXy/wasync/future"
)

// Status is a transport's position in the state machine described by
// spec §4.5.
type Status int

// Status values.
const (
	Init Status = iota
	Open
	Reopened
	Close
	Error
)

func (s Status) String() string {
	switch s {
	case Init:
		return "INIT"
	case Open:
		return "OPEN"
	case Reopened:
		return "REOPENED"
	case Close:
		return "CLOSE"
	case Error:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Name identifies a wire transport, mirroring the teacher's
// transport.Transport.Name() string tag.
type Name string

// Name values.
const (
	WebSocket   Name = "websocket"
	Streaming   Name = "streaming"
	SSE         Name = "sse"
	LongPolling Name = "long-polling"
)

// Transport is the contract every wire transport implementation satisfies
// (spec §4.5, §6, grounded on the original wasync Transport.java
// interface).
type Transport interface {
	// Name returns the transport tag.
	Name() Name

	// Status returns the current state.
	Status() Status

	// RegisterFunction exposes the transport's hook for registering a
	// function wrapper discovered after the transport was constructed
	// (most callers register through Socket.On instead).
	RegisterFunction(fn any)

	// Error records a fatal error and transitions to Error, then signals
	// the connected future and the root future unless the error has
	// already been handled by a user function.
	Error(err error)

	// ErrorHandled reports whether a user function consumed the last
	// error, suppressing its propagation to the root future.
	ErrorHandled() bool

	// SetErrorHandled marks the last error as consumed by a user
	// function, suppressing its propagation to the root future.
	SetErrorHandled(v bool)

	// OnThrowable is the upcall path from the network layer for
	// unexpected errors that are not protocol-level transport failures.
	OnThrowable(err error)

	// SetFuture injects the root future, signaled on final completion.
	SetFuture(f *future.Future)

	// SetConnectedFuture injects the future that unlocks Socket.Fire once
	// the connection is established.
	SetConnectedFuture(f *future.Future)

	// Close idempotently tears down the underlying network resources.
	Close() error
}
