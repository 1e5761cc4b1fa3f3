// Package frame defines the tagged wire-value carried through the encoder
// chain and handed to a transport's send method. Java's wasync dispatches
// on the runtime class of the encoded object (InputStream, Reader, String,
// byte[]); Go has no such runtime-class switch, so the four shapes are
// carried explicitly as one sum type.
package frame

import (
	"errors"
	"fmt"
	"io"
)

// ErrNoEncoder is returned (wrapped with the offending type or kind) when a
// value reaching the write path has no corresponding wire encoding —
// either Classify saw a type none of the four shapes cover, or a transport
// was handed a Value whose Kind it doesn't know how to send.
var ErrNoEncoder = errors.New("frame: no encoder")

// Kind identifies which field of a Value is populated.
type Kind int

const (
	// Text is a string payload, sent as a WebSocket text frame or an
	// HTTP body with no transcoding.
	Text Kind = iota
	// Binary is a []byte payload, sent as a WebSocket binary frame.
	Binary
	// ByteStream is an io.Reader of raw bytes. The WebSocket transport
	// drains it fully and sends a binary frame; the HTTP write path streams
	// it as the request body.
	ByteStream
	// CharStream is an io.Reader of character data. The WebSocket transport
	// drains it fully and sends a text frame; the HTTP write path streams
	// it as the request body.
	CharStream
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Binary:
		return "binary"
	case ByteStream:
		return "byte-stream"
	case CharStream:
		return "char-stream"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// CharReader marks an io.Reader as carrying character data rather than raw
// bytes, so the write path drains it into a string (Java: java.io.Reader)
// instead of a byte buffer (Java: java.io.InputStream). Encoders that want
// text-stream send semantics wrap their io.Reader in a CharReader; a bare
// io.Reader is treated as a byte stream.
type CharReader struct {
	io.Reader
}

// Value is the tagged payload handed to a transport's send method after the
// encoder chain has run.
type Value struct {
	Kind  Kind
	Text  string
	Bytes []byte
	// Stream holds the drained io.Reader for ByteStream and CharStream
	// kinds; it is nil for Text and Binary.
	Stream io.Reader
}

// Classify inspects the runtime type of an encoded object and returns the
// tagged Value the write path understands. It mirrors SocketRuntime's
// InputStream/Reader/String/byte[] dispatch from the Java source.
func Classify(v any) (Value, error) {
	switch t := v.(type) {
	case string:
		return Value{Kind: Text, Text: t}, nil
	case []byte:
		return Value{Kind: Binary, Bytes: t}, nil
	case CharReader:
		return Value{Kind: CharStream, Stream: t.Reader}, nil
	case io.Reader:
		return Value{Kind: ByteStream, Stream: t}, nil
	default:
		return Value{}, fmt.Errorf("%w for %T", ErrNoEncoder, v)
	}
}
