package decoder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainRunPassesThroughUnmatchedTypes(t *testing.T) {
	c := NewChain(Func(func(event Event, payload any) (any, bool, error) {
		b, ok := payload.([]byte)
		if !ok {
			return payload, false, nil
		}
		return string(b), true, nil
	}))

	out, aborted, err := c.Run(EventMessage, "already a string")
	require.NoError(t, err)
	assert.False(t, aborted)
	assert.Equal(t, "already a string", out)
}

func TestChainRunAppliesMatchingStageAndAborts(t *testing.T) {
	c := NewChain(
		Func(func(event Event, payload any) (any, bool, error) {
			return payload, false, nil
		}),
		Func(func(event Event, payload any) (any, bool, error) {
			return Abort, true, nil
		}),
	)

	out, aborted, err := c.Run(EventMessage, "hello")
	require.NoError(t, err)
	assert.True(t, aborted)
	assert.Equal(t, "hello", out, "Run returns the pre-abort payload, not the Abort sentinel")
}

func TestChainRunContinuesAfterStageError(t *testing.T) {
	stageErr := errors.New("boom")
	c := NewChain(
		Func(func(event Event, payload any) (any, bool, error) {
			return nil, false, stageErr
		}),
		Func(func(event Event, payload any) (any, bool, error) {
			return "recovered", true, nil
		}),
	)

	out, aborted, err := c.Run(EventMessage, "hello")
	assert.ErrorIs(t, err, stageErr)
	assert.False(t, aborted)
	assert.Equal(t, "recovered", out)
}

func TestChainSelfRemovalDuringRun(t *testing.T) {
	c := NewChain()
	var self *selfRemovingDecoder
	self = &selfRemovingDecoder{chain: c}
	c.Append(self)
	c.Append(Func(func(event Event, payload any) (any, bool, error) {
		return payload, false, nil
	}))

	_, _, err := c.Run(EventMessage, "x")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len(), "the decoder after self should survive, the self-removing one should not")
}

type selfRemovingDecoder struct {
	chain *Chain
}

func (d *selfRemovingDecoder) Decode(event Event, payload any) (any, bool, error) {
	d.chain.Remove(d)
	return payload, false, nil
}

func TestInsertAtClampsOutOfRangeIndex(t *testing.T) {
	c := NewChain()
	a := Func(func(Event, any) (any, bool, error) { return nil, false, nil })
	b := Func(func(Event, any) (any, bool, error) { return nil, false, nil })

	c.InsertAt(5, a)
	c.InsertAt(-1, b)

	snap := c.Snapshot()
	require.Len(t, snap, 2)
}

func TestIsAbort(t *testing.T) {
	assert.True(t, IsAbort(Abort))
	assert.False(t, IsAbort("not abort"))
	assert.False(t, IsAbort(nil))
}
