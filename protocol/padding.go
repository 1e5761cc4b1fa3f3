package protocol

import (
	"github.com/MaTriXy/wasync/decoder"
)

// PaddingAndHeartbeatDecoder strips a run of up to size bytes of the
// heartbeat character from the front of a message; any trailing payload
// after the run is passed through unchanged (spec §4.2, §6, testable
// property 7). It is installed by the handshake decoders at a fixed chain
// position once the handshake has been consumed.
type PaddingAndHeartbeatDecoder struct {
	size      int
	heartbeat byte
}

// NewPaddingAndHeartbeatDecoder returns a decoder that strips at most size
// bytes equal to heartbeat from the front of each message.
func NewPaddingAndHeartbeatDecoder(size int, heartbeat byte) *PaddingAndHeartbeatDecoder {
	return &PaddingAndHeartbeatDecoder{size: size, heartbeat: heartbeat}
}

// Decode implements decoder.Decoder.
func (p *PaddingAndHeartbeatDecoder) Decode(event decoder.Event, payload any) (any, bool, error) {
	if event != decoder.EventMessage {
		return payload, false, nil
	}

	switch v := payload.(type) {
	case string:
		return p.stripString(v), true, nil
	case []byte:
		return p.stripBytes(v), true, nil
	default:
		return payload, false, nil
	}
}

func (p *PaddingAndHeartbeatDecoder) stripString(s string) string {
	i := 0
	for i < len(s) && i < p.size && s[i] == p.heartbeat {
		i++
	}
	return s[i:]
}

func (p *PaddingAndHeartbeatDecoder) stripBytes(b []byte) []byte {
	i := 0
	for i < len(b) && i < p.size && b[i] == p.heartbeat {
		i++
	}
	return b[i:]
}
