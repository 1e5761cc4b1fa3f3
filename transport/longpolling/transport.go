// Package longpolling implements the HTTP long-polling transport: each
// poll is an independent GET whose body is one message; on completion the
// transport re-arms up to a configured maximum poll count (spec §4.5
// "Long-polling").
package longpolling

import (
	"context"
	"io"
	"net/http"

	"github.com/MaTriXy/wasync/decoder"
	"github.com/MaTriXy/wasync/request"
	"github.com/MaTriXy/wasync/transport"
	"github.com/MaTriXy/wasync/transport/httpshared"
)

// Transport is the long-polling wire implementation.
type Transport struct {
	*transport.Base

	req    *request.Request
	client *http.Client

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns an unconnected long-polling transport for req.
func New(req *request.Request) *Transport {
	base := transport.NewBase(transport.LongPolling)
	base.SetRequest(req)
	return &Transport{
		Base:   base,
		req:    req,
		client: &http.Client{Timeout: req.ReadTimeout},
	}
}

// Dial starts the poll loop and returns immediately; it never blocks, so
// the incoming ctx (bounded by ConnectTimeout at the call site) has nothing
// to govern here — Socket.Open's own wait on the connected future is what
// bounds how long the caller waits for the first poll to land. The poll
// loop's lifetime is governed by its own context, cancelled solely by
// Close, so it is never cut short by ConnectTimeout elapsing.
func (t *Transport) Dial(ctx context.Context) error {
	readCtx, cancel := context.WithCancel(context.Background())
	t.ctx, t.cancel = readCtx, cancel

	go t.pollLoop()
	return nil
}

func (t *Transport) pollLoop() {
	count := 0
	first := true

	for {
		if t.req.MaxRequest >= 0 && count >= t.req.MaxRequest {
			t.Close()
			return
		}
		count++

		body, err := t.poll()
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

		if first {
			t.MarkOpen()
			first = false
		} else {
			t.MarkReopened()
			t.MarkReconnected()
		}

		if len(body) > 0 {
			transport.Deliver(t.req, t.Handle(), decoder.EventMessage, string(body), t.Base)
		}
	}
}

func (t *Transport) poll() ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(t.ctx, http.MethodGet, httpshared.BuildURL(t.req), nil)
	if err != nil {
		return nil, err
	}
	httpshared.ApplyHeaders(httpReq, t.req)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Close implements transport.Transport, idempotently cancelling any
// pending poll re-arm (spec §5 "Cancellation / timeout").
func (t *Transport) Close() error {
	if !t.MarkClosed() {
		return nil
	}
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}
