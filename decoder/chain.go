package decoder

import "sync"

// Chain is an ordered, mutable sequence of Decoders. A Decoder may mutate
// the chain it belongs to — remove itself, insert another decoder at a
// fixed position — while a message is being processed; the protocol
// handshake decoders rely on exactly this (spec §4.2). Run therefore walks
// a snapshot taken under lock rather than the live slice.
type Chain struct {
	mu       sync.Mutex
	decoders []Decoder
}

// NewChain returns a Chain seeded with ds, in order.
func NewChain(ds ...Decoder) *Chain {
	c := &Chain{decoders: append([]Decoder(nil), ds...)}
	return c
}

// Prepend inserts d at position 0.
func (c *Chain) Prepend(d Decoder) {
	c.InsertAt(0, d)
}

// InsertAt inserts d at index i, clamping i into range.
func (c *Chain) InsertAt(i int, d Decoder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 {
		i = 0
	}
	if i > len(c.decoders) {
		i = len(c.decoders)
	}

	c.decoders = append(c.decoders, nil)
	copy(c.decoders[i+1:], c.decoders[i:])
	c.decoders[i] = d
}

// Append adds d at the end of the chain.
func (c *Chain) Append(d Decoder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoders = append(c.decoders, d)
}

// Remove deletes d (matched by identity) from the chain, if present.
func (c *Chain) Remove(d Decoder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, cur := range c.decoders {
		if cur == d {
			c.decoders = append(c.decoders[:i], c.decoders[i+1:]...)
			return
		}
	}
}

// Len returns the current number of decoders in the chain.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.decoders)
}

// Snapshot returns a copy of the current decoder list, safe to iterate
// while the chain itself is concurrently mutated.
func (c *Chain) Snapshot() []Decoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Decoder, len(c.decoders))
	copy(out, c.decoders)
	return out
}

// Run walks the chain in order for one inbound message. It returns the
// final payload, whether a stage aborted the chain, and the first error
// raised by a stage (a stage error does not abort — the chain continues
// with the payload unchanged, matching spec §4.2's handshake-parse-failure
// policy; callers that want stricter behavior can check err themselves).
func (c *Chain) Run(event Event, payload any) (out any, aborted bool, err error) {
	cur := payload
	for _, d := range c.Snapshot() {
		next, ok, derr := d.Decode(event, cur)
		if derr != nil {
			if err == nil {
				err = derr
			}
			continue
		}
		if !ok {
			continue
		}
		if IsAbort(next) {
			return cur, true, err
		}
		cur = next
	}
	return cur, false, err
}
