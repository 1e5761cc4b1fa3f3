// Package client provides the thin entry points applications use to open
// a Socket, deliberately minimal per the scope of this library (spec §1
// "Out of scope: the Client/ClientFactory entry points").
package client

import (
	"context"

	"github.com/MaTriXy/wasync/request"
	"github.com/MaTriXy/wasync/socket"
)

// Client opens sockets against a fixed request template, letting callers
// share timeouts, transports and handlers across multiple connections.
type Client struct {
	req *request.Request
}

// New returns a Client bound to req.
func New(req *request.Request) *Client {
	return &Client{req: req}
}

// Open negotiates a transport and returns the connected Socket, blocking as
// described in spec §6 "open".
func (c *Client) Open(ctx context.Context) (*socket.Socket, error) {
	return socket.Open(ctx, c.req)
}

// Factory produces Clients from a shared built request, mirroring the upstream
// ClientFactory/DefaultClient split so callers can configure a request once
// and hand out multiple independent Clients from it.
type Factory struct {
	req *request.Request
}

// NewFactory returns a Factory that will build Clients from req.
func NewFactory(req *request.Request) *Factory {
	return &Factory{req: req}
}

// Create returns a new Client bound to the factory's request.
func (f *Factory) Create() *Client {
	return New(f.req)
}
