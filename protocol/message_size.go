package protocol

import (
	"strings"
	"sync/atomic"

	"github.com/MaTriXy/wasync/decoder"
)

// TrackMessageSizeDecoder strips the leading "<length><delimiter>" prefix
// Atmosphere's TrackMessageSize feature adds to every message. When
// protocolAware is true, the first message is the Atmosphere handshake
// itself and is passed through unchanged — the handshake decoders expect
// the length field to still be present as their own first delimited field
// (spec §4.1, supplemented from original_source's handleProtocol offset).
type TrackMessageSizeDecoder struct {
	delimiter     string
	protocolAware bool
	seenFirst     atomic.Bool
}

// NewTrackMessageSizeDecoder returns a decoder using delimiter to split the
// length prefix from the rest of each message.
func NewTrackMessageSizeDecoder(delimiter string, protocolAware bool) *TrackMessageSizeDecoder {
	if delimiter == "" {
		delimiter = "|"
	}
	return &TrackMessageSizeDecoder{delimiter: delimiter, protocolAware: protocolAware}
}

// Decode implements decoder.Decoder.
func (d *TrackMessageSizeDecoder) Decode(event decoder.Event, payload any) (any, bool, error) {
	if event != decoder.EventMessage {
		return payload, false, nil
	}

	switch v := payload.(type) {
	case string:
		return d.stripString(v), true, nil
	case []byte:
		return d.stripBytes(v), true, nil
	default:
		return payload, false, nil
	}
}

func (d *TrackMessageSizeDecoder) stripString(s string) string {
	if d.protocolAware && !d.seenFirst.Swap(true) {
		return s
	}
	idx := strings.Index(s, d.delimiter)
	if idx < 0 {
		return s
	}
	return s[idx+len(d.delimiter):]
}

func (d *TrackMessageSizeDecoder) stripBytes(b []byte) []byte {
	if d.protocolAware && !d.seenFirst.Swap(true) {
		return b
	}
	idx := strings.Index(string(b), d.delimiter)
	if idx < 0 {
		return b
	}
	return b[idx+len(d.delimiter):]
}
