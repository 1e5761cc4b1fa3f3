// Package request implements the immutable Request descriptor and its
// builder, plus the Atmosphere-specific specialization (spec §3, §4.1).
package request

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MaTriXy/wasync/decoder"
	"github.com/MaTriXy/wasync/dispatch"
	"github.com/MaTriXy/wasync/encoder"
)

// Transport names a wire mechanism beneath the socket (spec §2, §6).
type Transport string

// Transport values, whose lowercase names also appear on the wire in the
// X-Atmosphere-Transport query parameter (spec §6).
const (
	WebSocket   Transport = "WEBSOCKET"
	Streaming   Transport = "STREAMING"
	SSE         Transport = "SSE"
	LongPolling Transport = "LONG_POLLING"
)

// WireName returns the lowercase wire token for t, using the irregular
// "long-polling" spelling for LongPolling (spec §4.1).
func (t Transport) WireName() string {
	if t == LongPolling {
		return "long-polling"
	}
	return strings.ToLower(string(t))
}

// Method is the HTTP verb used to open or write to a transport.
type Method string

// Method values (spec §3: "default POST for writes, GET for opens").
const (
	GET  Method = "GET"
	POST Method = "POST"
)

// ErrEmptyURI is returned by Build when no URI was set on the builder.
var ErrEmptyURI = errors.New("request: empty URI")

// Request is an immutable request descriptor, built once and shared
// read-only by the transport for the life of the socket (spec §3).
type Request struct {
	// ID identifies this Request for logging/correlation purposes only —
	// distinct from the Atmosphere tracking-id, which is server-assigned
	// and travels as the X-Atmosphere-tracking-id query parameter. Set
	// explicitly via Builder.ID, or auto-generated on Build.
	ID string

	URI     string
	Method  Method
	Headers *Values
	Query   *Values

	Transports []Transport

	Encoders *encoder.Chain
	Decoders *decoder.Chain
	Registry *dispatch.Registry
	Resolver dispatch.Resolver

	ReadTimeout    time.Duration
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	MaxRequest     int
	Binary         bool
}

// Builder accumulates headers, query parameters, transports, decoders and
// encoders before producing an immutable Request (spec §3, §4.1).
type Builder struct {
	id      string
	uri     string
	method  Method
	headers *Values
	query   *Values

	transports []Transport
	encoders   []encoder.Encoder
	decoders   []decoder.Decoder
	registry   *dispatch.Registry
	resolver   dispatch.Resolver

	readTimeout    time.Duration
	connectTimeout time.Duration
	requestTimeout time.Duration
	maxRequest     int
	binary         bool

	built bool
}

// NewBuilder returns an empty Builder with POST as the default write
// method (spec §3).
func NewBuilder() *Builder {
	return &Builder{
		method:     POST,
		headers:    NewValues(),
		query:      NewValues(),
		registry:   dispatch.NewRegistry(),
		maxRequest: -1,
	}
}

// ID sets a caller-supplied correlation id for logging, overriding the
// auto-generated one Build would otherwise assign.
func (b *Builder) ID(id string) *Builder { b.id = id; return b }

// URI sets the target URI.
func (b *Builder) URI(uri string) *Builder { b.uri = uri; return b }

// Method sets the HTTP method.
func (b *Builder) Method(m Method) *Builder { b.method = m; return b }

// Header adds a header value, preserving casing.
func (b *Builder) Header(key, value string) *Builder {
	b.headers.Add(key, value)
	return b
}

// Query adds a query parameter value.
func (b *Builder) Query(key, value string) *Builder {
	b.query.Add(key, value)
	return b
}

// Transport appends t to the ordered transport list (spec §4.1).
func (b *Builder) Transport(t Transport) *Builder {
	b.transports = append(b.transports, t)
	return b
}

// Encoder appends e to the ordered encoder chain.
func (b *Builder) Encoder(e encoder.Encoder) *Builder {
	b.encoders = append(b.encoders, e)
	return b
}

// Decoder appends d to the ordered decoder chain.
func (b *Builder) Decoder(d decoder.Decoder) *Builder {
	b.decoders = append(b.decoders, d)
	return b
}

// Resolver sets the function resolver used as the third dispatch strategy
// (spec §4.4).
func (b *Builder) Resolver(r dispatch.Resolver) *Builder {
	b.resolver = r
	return b
}

// Registry returns the function registry this builder's Request will
// share with its Socket, creating callers can register callbacks on it
// before Build.
func (b *Builder) Registry() *dispatch.Registry { return b.registry }

// ReadTimeout sets the read timeout.
func (b *Builder) ReadTimeout(d time.Duration) *Builder { b.readTimeout = d; return b }

// ConnectTimeout sets the connect timeout.
func (b *Builder) ConnectTimeout(d time.Duration) *Builder { b.connectTimeout = d; return b }

// RequestTimeout sets the per-write request timeout.
func (b *Builder) RequestTimeout(d time.Duration) *Builder { b.requestTimeout = d; return b }

// MaxRequest sets the maximum poll count for long-polling (spec §4.5).
func (b *Builder) MaxRequest(n int) *Builder { b.maxRequest = n; return b }

// Binary marks the connection as carrying binary payloads.
func (b *Builder) Binary(v bool) *Builder { b.binary = v; return b }

// Build produces the immutable Request. Calling Build more than once on a
// plain Builder is safe (spec §4.1); AtmosphereBuilder tightens this.
func (b *Builder) Build() (*Request, error) {
	if b.uri == "" {
		return nil, ErrEmptyURI
	}

	id := b.id
	if id == "" {
		id = uuid.Must(uuid.NewUUID()).String()
	}

	return &Request{
		ID:             id,
		URI:            b.uri,
		Method:         b.method,
		Headers:        b.headers.Clone(),
		Query:          b.query.Clone(),
		Transports:     append([]Transport(nil), b.transports...),
		Encoders:       encoder.NewChain(b.encoders...),
		Decoders:       decoder.NewChain(b.decoders...),
		Registry:       b.registry,
		Resolver:       b.resolver,
		ReadTimeout:    b.readTimeout,
		ConnectTimeout: b.connectTimeout,
		RequestTimeout: b.requestTimeout,
		MaxRequest:     b.maxRequest,
		Binary:         b.binary,
	}, nil
}

// TransportError reports a failure attributed to a named transport,
// generalizing the teacher's namespace+error errorMessage type (spec §7).
type TransportError struct {
	Transport string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s", e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
