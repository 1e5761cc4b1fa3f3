// Package encoder implements the outbound pipeline symmetric to decoder's
// inbound chain (spec §3 "Encoder chain").
package encoder

import "sync"

// Encoder is one stage of the outbound pipeline. Encode is called with the
// object produced by the previous stage. An Encoder that does not handle
// the runtime type of obj must return ok=false and leave obj untouched.
type Encoder interface {
	Encode(obj any) (out any, ok bool, err error)
}

// Func adapts a plain function to the Encoder interface.
type Func func(obj any) (any, bool, error)

// Encode implements Encoder.
func (f Func) Encode(obj any) (any, bool, error) {
	return f(obj)
}

// Chain is an ordered, mutable sequence of Encoders, filtered by runtime
// type exactly like decoder.Chain (spec §4.6 step 1).
type Chain struct {
	mu       sync.Mutex
	encoders []Encoder
}

// NewChain returns a Chain seeded with es, in order.
func NewChain(es ...Encoder) *Chain {
	return &Chain{encoders: append([]Encoder(nil), es...)}
}

// Append adds e at the end of the chain.
func (c *Chain) Append(e Encoder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encoders = append(c.encoders, e)
}

func (c *Chain) snapshot() []Encoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Encoder, len(c.encoders))
	copy(out, c.encoders)
	return out
}

// Run walks the chain in order, replacing obj with each matching stage's
// output (spec §4.6 step 1).
func (c *Chain) Run(obj any) (any, error) {
	cur := obj
	for _, e := range c.snapshot() {
		next, ok, err := e.Encode(cur)
		if err != nil {
			return cur, err
		}
		if !ok {
			continue
		}
		cur = next
	}
	return cur, nil
}
