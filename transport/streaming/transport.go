// Package streaming implements the HTTP streaming transport: a single
// long-lived response whose body is chunked, where each chunk is one
// message (spec §4.5 "HTTP streaming / SSE").
package streaming

import (
	"context"
	"net/http"

	"github.com/MaTriXy/wasync/decoder"
	"github.com/MaTriXy/wasync/request"
	"github.com/MaTriXy/wasync/transport"
	"github.com/MaTriXy/wasync/transport/httpshared"
)

const readBufferSize = 8192

// Transport is the HTTP streaming wire implementation.
type Transport struct {
	*transport.Base

	req    *request.Request
	client *http.Client
	resp   *http.Response

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns an unconnected streaming transport for req.
func New(req *request.Request) *Transport {
	base := transport.NewBase(transport.Streaming)
	base.SetRequest(req)
	return &Transport{
		Base:   base,
		req:    req,
		client: &http.Client{},
	}
}

// Dial issues the long-lived GET and starts the chunk read loop. ctx bounds
// only how long Dial waits for response headers to arrive (spec §3
// ConnectTimeout, §5); the read loop's own lifetime is governed by a
// separate context cancelled solely by Close, so a server that stays open
// past ConnectTimeout does not have its stream cut off the moment that
// deadline passes.
func (t *Transport) Dial(ctx context.Context) error {
	readCtx, cancel := context.WithCancel(context.Background())
	t.ctx, t.cancel = readCtx, cancel

	httpReq, err := http.NewRequestWithContext(readCtx, http.MethodGet, httpshared.BuildURL(t.req), nil)
	if err != nil {
		cancel()
		t.Error(err)
		return err
	}
	httpshared.ApplyHeaders(httpReq, t.req)

	type dialResult struct {
		resp *http.Response
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		resp, err := t.client.Do(httpReq)
		resultCh <- dialResult{resp, err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			cancel()
			t.Error(res.err)
			return res.err
		}
		t.resp = res.resp
	case <-ctx.Done():
		cancel()
		err := ctx.Err()
		t.Error(err)
		return err
	}

	go t.readLoop()
	return nil
}

func (t *Transport) readLoop() {
	defer t.resp.Body.Close()

	buf := make([]byte, readBufferSize)
	first := true

	for {
		n, err := t.resp.Body.Read(buf)
		if n > 0 {
			if first {
				t.MarkOpen()
				first = false
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			transport.Deliver(t.req, t.Handle(), decoder.EventMessage, string(chunk), t.Base)
		}
		if err != nil {
			select {
			case <-t.ctx.Done():
				return
			default:
			}
			if !first && httpshared.IsPeerClose(err) {
				t.ClosedByPeer()
				return
			}
			t.Error(err)
			return
		}
	}
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	if !t.MarkClosed() {
		return nil
	}
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}
