// Package websocket implements the WebSocket transport (spec §4.5 "WebSocket").
package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/MaTriXy/wasync/decoder"
	"github.com/MaTriXy/wasync/frame"
	"github.com/MaTriXy/wasync/request"
	"github.com/MaTriXy/wasync/transport"
)

// Transport is the WebSocket wire implementation. Sends are send(frame)
// with text/binary variants; receives are complete frames (spec §4.5).
type Transport struct {
	*transport.Base

	req    *request.Request
	dialer *websocket.Dialer
	conn   *websocket.Conn
}

// New returns an unconnected WebSocket transport for req.
func New(req *request.Request) *Transport {
	base := transport.NewBase(transport.WebSocket)
	base.SetRequest(req)
	return &Transport{
		Base: base,
		req:  req,
		dialer: &websocket.Dialer{
			HandshakeTimeout: req.ConnectTimeout,
		},
	}
}

// Dial opens the WebSocket connection and starts the read loop. It blocks
// until the handshake completes or fails; a completed handshake is the
// transport-level OPEN transition, so the connected and root futures are
// already done when Dial returns nil (spec §4.5, §5).
func (t *Transport) Dial(ctx context.Context) error {
	u, err := wsURL(t.req)
	if err != nil {
		t.Error(err)
		return err
	}

	conn, _, err := t.dialer.DialContext(ctx, u.String(), httpHeader(t.req))
	if err != nil {
		t.Error(err)
		return err
	}

	t.conn = conn
	t.MarkOpen()
	go t.readLoop()
	return nil
}

func (t *Transport) readLoop() {
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			if t.Status() == transport.Close {
				return
			}
			if isPeerClose(err) {
				t.ClosedByPeer()
				return
			}
			t.Error(err)
			return
		}

		var payload any
		if msgType == websocket.TextMessage {
			payload = string(data)
		} else {
			payload = data
		}

		transport.Deliver(t.req, t.Handle(), decoder.EventMessage, payload, t.Base)
	}
}

// Send transmits v as a single WebSocket frame, dispatching on its tag
// exactly as spec §4.6 step 3 describes.
func (t *Transport) Send(v frame.Value) error {
	switch v.Kind {
	case frame.Text:
		return t.conn.WriteMessage(websocket.TextMessage, []byte(v.Text))
	case frame.Binary:
		return t.conn.WriteMessage(websocket.BinaryMessage, v.Bytes)
	case frame.ByteStream:
		b, err := io.ReadAll(v.Stream)
		if err != nil {
			return err
		}
		return t.conn.WriteMessage(websocket.BinaryMessage, b)
	case frame.CharStream:
		b, err := io.ReadAll(v.Stream)
		if err != nil {
			return err
		}
		return t.conn.WriteMessage(websocket.TextMessage, b)
	default:
		return fmt.Errorf("%w for %v", frame.ErrNoEncoder, v.Kind)
	}
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	if !t.MarkClosed() {
		return nil
	}
	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}

// isPeerClose reports whether err is a clean stream termination — a
// normal WebSocket close frame or a plain EOF — rather than a genuine
// transport failure.
func isPeerClose(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}

func wsURL(req *request.Request) (*url.URL, error) {
	u, err := url.Parse(req.URI)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	q := u.Query()
	for _, k := range req.Query.Keys() {
		for _, v := range req.Query.All(k) {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u, nil
}

func httpHeader(req *request.Request) http.Header {
	h := make(http.Header)
	for _, k := range req.Headers.Keys() {
		for _, v := range req.Headers.All(k) {
			h.Add(k, v)
		}
	}
	return h
}
