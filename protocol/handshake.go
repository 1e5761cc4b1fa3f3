package protocol

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/MaTriXy/wasync/decoder"
)

// sharedHandshakeConfig is the state the string and binary handshake
// decoders both close over: the live decoder chain they remove themselves
// from, the query parameters they write the tracking UUID into, and the
// at-most-once received latch. It is aliased, not copied, between the two
// decoders (spec §4.2, §9).
type sharedHandshakeConfig struct {
	received           atomic.Bool
	query              QuerySetter
	chain              *decoder.Chain
	paddingSize        int
	delimiter          string
	trackMessageLength bool
	log                logr.Logger
}

func (c *sharedHandshakeConfig) handle(raw string) error {
	fields := strings.Split(strings.TrimSpace(raw), c.delimiter)

	pos := 0
	if c.trackMessageLength {
		pos = 1
	}
	if len(fields) <= pos {
		return fmt.Errorf("protocol: malformed handshake %q", raw)
	}

	c.query.Set(TrackingIDQueryParam, fields[pos])

	heartbeat := byte(DefaultHeartbeatChar)
	if len(fields) == 3 && len(fields[2]) > 0 {
		heartbeat = fields[2][0]
	}

	c.chain.InsertAt(2, NewPaddingAndHeartbeatDecoder(c.paddingSize, heartbeat))
	return nil
}

// StringHandshakeDecoder fires when the transport delivers the handshake
// as a string frame.
type StringHandshakeDecoder struct {
	cfg     *sharedHandshakeConfig
	sibling decoder.Decoder
}

// BinaryHandshakeDecoder fires when the transport delivers the handshake
// as a binary frame.
type BinaryHandshakeDecoder struct {
	cfg     *sharedHandshakeConfig
	sibling decoder.Decoder
}

// NewHandshakeDecoders returns the cooperating string/binary decoder pair
// described in spec §4.2. Each holds a reference to the other so that
// whichever one fires first can remove its sibling from chain too.
func NewHandshakeDecoders(query QuerySetter, chain *decoder.Chain, paddingSize int, trackMessageLength bool, delimiter string, log logr.Logger) (*StringHandshakeDecoder, *BinaryHandshakeDecoder) {
	cfg := &sharedHandshakeConfig{
		query:              query,
		chain:              chain,
		paddingSize:        paddingSize,
		delimiter:          delimiter,
		trackMessageLength: trackMessageLength,
		log:                log,
	}

	s := &StringHandshakeDecoder{cfg: cfg}
	b := &BinaryHandshakeDecoder{cfg: cfg}
	s.sibling = b
	b.sibling = s
	return s, b
}

// Decode implements decoder.Decoder. On success it returns decoder.Abort
// so the handshake is invisible to user callbacks (spec §4.2).
func (d *StringHandshakeDecoder) Decode(event decoder.Event, payload any) (any, bool, error) {
	if event != decoder.EventMessage {
		return payload, false, nil
	}
	s, ok := payload.(string)
	if !ok {
		return payload, false, nil
	}
	if d.cfg.received.Swap(true) {
		return payload, false, nil
	}

	if err := d.cfg.handle(s); err != nil {
		d.cfg.log.V(1).Info("unable to decode the protocol handshake", "payload", s, "error", err.Error())
		return payload, true, nil
	}

	d.cfg.chain.Remove(d)
	d.cfg.chain.Remove(d.sibling)
	return decoder.Abort, true, nil
}

// Decode implements decoder.Decoder for the binary variant.
func (d *BinaryHandshakeDecoder) Decode(event decoder.Event, payload any) (any, bool, error) {
	if event != decoder.EventMessage {
		return payload, false, nil
	}
	b, ok := payload.([]byte)
	if !ok {
		return payload, false, nil
	}
	if d.cfg.received.Swap(true) {
		return payload, false, nil
	}

	if err := d.cfg.handle(string(b)); err != nil {
		d.cfg.log.V(1).Info("unable to decode the protocol handshake", "payload", string(b), "error", err.Error())
		return payload, true, nil
	}

	d.cfg.chain.Remove(d)
	d.cfg.chain.Remove(d.sibling)
	return decoder.Abort, true, nil
}
