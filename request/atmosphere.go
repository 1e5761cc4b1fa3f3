package request

import (
	"errors"

	"github.com/go-logr/logr"

	"github.com/MaTriXy/wasync/decoder"
	"github.com/MaTriXy/wasync/internal/logger"
	"github.com/MaTriXy/wasync/protocol"
)

// CacheType identifies the server-side Atmosphere Broadcaster cache
// implementation a request expects (spec §3).
type CacheType int

// CacheType values.
const (
	NoBroadcastCache CacheType = iota
	HeaderBroadcastCache
	UUIDBroadcasterCache
	SessionBroadcastCache
)

// FrameworkVersion is mirrored into the X-Atmosphere-Framework query
// parameter on every Atmosphere-enabled request (spec §6).
const FrameworkVersion = "2.3.0"

// ErrBuilderReused is returned by AtmosphereBuilder.Build when it is
// called more than once on a builder that enabled the protocol or
// message-length tracking — a second build would double-inject the
// handshake decoders (spec §3 invariant, §4.1, §9).
var ErrBuilderReused = errors.New("request: atmosphere builder already built")

// AtmosphereRequest specializes Request with the Atmosphere Protocol's
// cache type, message-length tracking, padding size and protocol toggle
// (spec §3).
type AtmosphereRequest struct {
	*Request

	CacheType               CacheType
	TrackMessageLength      bool
	TrackMessageLengthDelim string
	PaddingSize             int
	EnableProtocol          bool
}

// AtmosphereBuilder builds an AtmosphereRequest, injecting the Atmosphere
// handshake query parameters and decoders on Build (spec §4.1).
type AtmosphereBuilder struct {
	*Builder

	cacheType          CacheType
	trackMessageLength bool
	delimiter          string
	paddingSize        int
	enableProtocol     bool

	built bool
	log   logr.Logger
}

// NewAtmosphereBuilder returns a builder with Atmosphere's documented
// defaults: protocol enabled, '|' delimiter, 4098-byte padding (spec §3).
func NewAtmosphereBuilder() *AtmosphereBuilder {
	return &AtmosphereBuilder{
		Builder:        NewBuilder(),
		cacheType:      NoBroadcastCache,
		delimiter:      "|",
		paddingSize:    4098,
		enableProtocol: true,
		log:            logger.Get("request"),
	}
}

// URI sets the target URI, overriding the embedded Builder.URI to keep
// the fluent chain on *AtmosphereBuilder.
func (b *AtmosphereBuilder) URI(uri string) *AtmosphereBuilder {
	b.Builder.URI(uri)
	return b
}

// Header adds a header value, overriding the embedded Builder.Header to
// keep the fluent chain on *AtmosphereBuilder.
func (b *AtmosphereBuilder) Header(key, value string) *AtmosphereBuilder {
	b.Builder.Header(key, value)
	return b
}

// Decoder appends d to the ordered decoder chain, overriding the embedded
// Builder.Decoder to keep the fluent chain on *AtmosphereBuilder.
func (b *AtmosphereBuilder) Decoder(d decoder.Decoder) *AtmosphereBuilder {
	b.Builder.Decoder(d)
	return b
}

// Cache sets the broadcaster cache type the server is expected to use.
func (b *AtmosphereBuilder) Cache(c CacheType) *AtmosphereBuilder {
	b.cacheType = c
	return b
}

// TrackMessageLength turns message-length tracking on or off.
func (b *AtmosphereBuilder) TrackMessageLength(v bool) *AtmosphereBuilder {
	b.trackMessageLength = v
	return b
}

// TrackMessageLengthDelimiter sets the delimiter used between the length
// prefix and the rest of a tracked message.
func (b *AtmosphereBuilder) TrackMessageLengthDelimiter(delim string) *AtmosphereBuilder {
	b.delimiter = delim
	return b
}

// PaddingSize sets the padding/heartbeat run length the server sends.
func (b *AtmosphereBuilder) PaddingSize(n int) *AtmosphereBuilder {
	b.paddingSize = n
	return b
}

// EnableProtocol turns the Atmosphere Protocol handshake on or off.
// Default is true.
func (b *AtmosphereBuilder) EnableProtocol(v bool) *AtmosphereBuilder {
	b.enableProtocol = v
	return b
}

// Transport appends t, injecting its wire name into the X-Atmosphere-Transport
// query parameter iff no value is present yet (spec §4.1).
func (b *AtmosphereBuilder) Transport(t Transport) *AtmosphereBuilder {
	if !b.query.Has("X-Atmosphere-Transport") {
		b.query.Set("X-Atmosphere-Transport", t.WireName())
	}
	b.Builder.Transport(t)
	return b
}

// Build produces the immutable AtmosphereRequest, injecting the handshake
// query parameters and decoders described in spec §4.1. It fails with
// ErrBuilderReused if called a second time on a builder that enabled the
// protocol or message-length tracking (spec §3 invariant).
func (b *AtmosphereBuilder) Build() (*AtmosphereRequest, error) {
	if b.built && (b.enableProtocol || b.trackMessageLength) {
		return nil, ErrBuilderReused
	}
	b.built = true

	if b.enableProtocol {
		b.query.Set("X-Atmosphere-Framework", FrameworkVersion)
		b.query.Set("X-Atmosphere-tracking-id", "0")
		b.query.Set("X-atmo-protocol", "true")

		if ct := b.headers.All("Content-Type"); len(ct) > 0 {
			for _, v := range ct {
				b.query.Add("Content-Type", v)
			}
		}
	}

	if b.trackMessageLength {
		b.query.Set("X-Atmosphere-TrackMessageSize", "true")
	}

	req, err := b.Builder.Build()
	if err != nil {
		return nil, err
	}

	if b.enableProtocol {
		s, bi := protocol.NewHandshakeDecoders(req.Query, req.Decoders, b.paddingSize, b.trackMessageLength, b.delimiter, b.log)
		req.Decoders.InsertAt(0, bi)
		req.Decoders.InsertAt(0, s)
	}

	if b.trackMessageLength {
		msd := protocol.NewTrackMessageSizeDecoder(b.delimiter, b.enableProtocol)
		req.Decoders.InsertAt(0, msd)
	}

	return &AtmosphereRequest{
		Request:                 req,
		CacheType:               b.cacheType,
		TrackMessageLength:      b.trackMessageLength,
		TrackMessageLengthDelim: b.delimiter,
		PaddingSize:             b.paddingSize,
		EnableProtocol:          b.enableProtocol,
	}, nil
}
