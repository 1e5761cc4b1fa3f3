// Package decoder implements the ordered, mutable decoder pipeline that
// turns a raw transport payload into a typed application message.
package decoder

import "fmt"

// Event identifies the kind of occurrence a Decoder is invoked for.
type Event string

const (
	// EventOpen fires once the transport has connected.
	EventOpen Event = "open"
	// EventMessage fires for every inbound application payload.
	EventMessage Event = "message"
	// EventClose fires when the transport tears down.
	EventClose Event = "close"
	// EventReopened fires when a long-polling transport re-arms.
	EventReopened Event = "reopened"
	// EventError fires when the transport records a fatal error.
	EventError Event = "error"
)

func (e Event) String() string { return string(e) }

type abortSentinel struct{}

// Abort is the sentinel value a Decoder returns to terminate the chain for
// the current message and suppress dispatch to user callbacks.
var Abort any = abortSentinel{}

// IsAbort reports whether a decoder's output is the Abort sentinel.
func IsAbort(v any) bool {
	_, ok := v.(abortSentinel)
	return ok
}

// Decoder is one stage of the pipeline. Decode is called with the payload
// produced by the previous stage (or the raw transport payload for the
// first stage). A Decoder that does not handle the runtime type of payload
// must return ok=false and leave payload untouched; the pipeline then moves
// to the next stage unchanged.
type Decoder interface {
	Decode(event Event, payload any) (out any, ok bool, err error)
}

// Func adapts a plain function to the Decoder interface.
type Func func(event Event, payload any) (any, bool, error)

// Decode implements Decoder.
func (f Func) Decode(event Event, payload any) (any, bool, error) {
	return f(event, payload)
}

// TypeError is returned when a write-path encoder/decoder sees a payload
// type it is not prepared to handle and chooses to fail loudly rather than
// silently skip (used by protocol decoders on malformed handshakes is NOT
// this — that case logs and passes through per spec).
type TypeError struct {
	Stage string
	Value any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: unsupported payload type %T", e.Stage, e.Value)
}
