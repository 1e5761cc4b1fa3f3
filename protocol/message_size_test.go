package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaTriXy/wasync/decoder"
)

func TestTrackMessageSizeDecoderStripsLengthPrefix(t *testing.T) {
	d := NewTrackMessageSizeDecoder("|", false)

	out, ok, err := d.Decode(decoder.EventMessage, "4|ping")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ping", out)
}

// S2 — when protocol-aware, the first message is the handshake itself and
// must pass through unchanged so the handshake decoder still sees the
// length field as its own leading delimited field.
func TestTrackMessageSizeDecoderProtocolAwarePassesFirstMessageThrough(t *testing.T) {
	d := NewTrackMessageSizeDecoder("|", true)

	out, ok, err := d.Decode(decoder.EventMessage, "11|5a3f-uuid|X")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "11|5a3f-uuid|X", out)
}

func TestTrackMessageSizeDecoderProtocolAwareStripsSubsequentMessages(t *testing.T) {
	d := NewTrackMessageSizeDecoder("|", true)

	_, _, err := d.Decode(decoder.EventMessage, "11|5a3f-uuid|X")
	require.NoError(t, err)

	out, ok, err := d.Decode(decoder.EventMessage, "4|ping")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ping", out)
}

func TestTrackMessageSizeDecoderDefaultsDelimiterToPipe(t *testing.T) {
	d := NewTrackMessageSizeDecoder("", false)

	out, _, err := d.Decode(decoder.EventMessage, "3|abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", out)
}

func TestTrackMessageSizeDecoderHandlesBytes(t *testing.T) {
	d := NewTrackMessageSizeDecoder("|", false)

	out, ok, err := d.Decode(decoder.EventMessage, []byte("4|data"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("data"), out)
}

func TestTrackMessageSizeDecoderPassesThroughWhenDelimiterMissing(t *testing.T) {
	d := NewTrackMessageSizeDecoder("|", false)

	out, _, err := d.Decode(decoder.EventMessage, "no-delimiter-here")
	require.NoError(t, err)
	assert.Equal(t, "no-delimiter-here", out)
}
