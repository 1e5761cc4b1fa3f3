// Package sse implements the Server-Sent Events transport: a single
// long-lived response whose body is line-delimited "data:" records, one
// record per message (spec §4.5 "SSE").
package sse

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/MaTriXy/wasync/decoder"
	"github.com/MaTriXy/wasync/request"
	"github.com/MaTriXy/wasync/transport"
	"github.com/MaTriXy/wasync/transport/httpshared"
)

// Transport is the SSE wire implementation.
type Transport struct {
	*transport.Base

	req    *request.Request
	client *http.Client
	resp   *http.Response

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns an unconnected SSE transport for req.
func New(req *request.Request) *Transport {
	base := transport.NewBase(transport.SSE)
	base.SetRequest(req)
	return &Transport{
		Base:   base,
		req:    req,
		client: &http.Client{},
	}
}

// Dial issues the long-lived GET and starts the event read loop. ctx bounds
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
	httpReq.Header.Set("Accept", "text/event-stream")

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

// readLoop parses the event-stream line by line, accumulating "data:"
// lines into one message and dispatching on the blank line that
// terminates each record (the SSE wire format's event boundary).
func (t *Transport) readLoop() {
	defer t.resp.Body.Close()

	scanner := bufio.NewScanner(t.resp.Body)
	first := true
	var data []string

	flush := func() {
		if len(data) == 0 {
			return
		}
		msg := strings.Join(data, "\n")
		data = data[:0]

		if first {
			t.MarkOpen()
			first = false
		}
		transport.Deliver(t.req, t.Handle(), decoder.EventMessage, msg, t.Base)
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "data:"):
			field := strings.TrimPrefix(line, "data:")
			field = strings.TrimPrefix(field, " ")
			data = append(data, field)
		default:
			// Other SSE fields (event:, id:, retry:) carry no payload of
			// interest to this client; ignore them.
		}
	}
	flush()

	select {
	case <-t.ctx.Done():
		return
	default:
	}

	if err := scanner.Err(); err != nil {
		t.Error(err)
		return
	}

	// scanner.Err() == nil here means Scan stopped on a clean EOF, not a
	// read error. Treat it as the peer hanging up once we'd actually
	// opened; an EOF before that point means the stream never produced a
	// single record and the transport never got to establish itself.
	if !first {
		t.ClosedByPeer()
		return
	}
	t.Error(io.ErrUnexpectedEOF)
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
