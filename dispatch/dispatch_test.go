package dispatch

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapperMatchesByEventName(t *testing.T) {
	var got string
	w, err := OnEvent("message", func(s string) { got = s })
	require.NoError(t, err)

	registry := NewRegistry()
	registry.Register(w)

	Dispatch(nil, registry, reflect.TypeOf(""), "hello", "message", nil)
	assert.Equal(t, "hello", got)
}

func TestWrapperMatchesByType(t *testing.T) {
	var got int
	w, err := OnType(0, func(n int) { got = n })
	require.NoError(t, err)

	registry := NewRegistry()
	registry.Register(w)

	Dispatch(nil, registry, reflect.TypeOf(42), 42, "some-event", nil)
	assert.Equal(t, 42, got)
}

func TestWrapperWildcardMatchesEverything(t *testing.T) {
	calls := 0
	w, err := On(func(any) { calls++ })
	require.NoError(t, err)

	registry := NewRegistry()
	registry.Register(w)

	Dispatch(nil, registry, reflect.TypeOf("x"), "x", "anything", nil)
	Dispatch(nil, registry, nil, nil, "", nil)
	assert.Equal(t, 2, calls)
}

type stubResolver struct {
	key string
}

func (r stubResolver) Resolve(key string, payload any) bool {
	return key == r.key
}

func TestWrapperMatchesViaResolver(t *testing.T) {
	var got string
	w, err := OnEvent("never-matches-by-name", func(s string) { got = s })
	require.NoError(t, err)

	registry := NewRegistry()
	registry.Register(w)

	Dispatch(nil, registry, reflect.TypeOf(""), "via-resolver", "other-event", stubResolver{key: "never-matches-by-name"})
	assert.Equal(t, "via-resolver", got)
}

func TestDispatchPreservesRegistrationOrder(t *testing.T) {
	var order []int
	w1, _ := On(func(any) { order = append(order, 1) })
	w2, _ := On(func(any) { order = append(order, 2) })
	w3, _ := On(func(any) { order = append(order, 3) })

	registry := NewRegistry()
	registry.Register(w1)
	registry.Register(w2)
	registry.Register(w3)

	Dispatch(nil, registry, nil, "x", "event", nil)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDispatchContinuesAfterCallbackPanic(t *testing.T) {
	called := false
	wPanics, _ := On(func(any) { panic("boom") })
	wOK, _ := On(func(any) { called = true })

	registry := NewRegistry()
	registry.Register(wPanics)
	registry.Register(wOK)

	Dispatch(nil, registry, nil, "x", "event", nil)
	assert.True(t, called, "a panicking callback must not prevent later callbacks from running")
}

func TestDispatchContinuesAfterCallbackError(t *testing.T) {
	called := false
	wErrs, _ := On(func(any) error { return errors.New("nope") })
	wOK, _ := On(func(any) { called = true })

	registry := NewRegistry()
	registry.Register(wErrs)
	registry.Register(wOK)

	Dispatch(nil, registry, nil, "x", "event", nil)
	assert.True(t, called)
}

func TestCallerPassesHandleAsLeadingArgument(t *testing.T) {
	type handle struct{ id int }
	var gotHandle *handle
	var gotPayload string

	w, err := On(func(h *handle, s string) {
		gotHandle = h
		gotPayload = s
	})
	require.NoError(t, err)

	registry := NewRegistry()
	registry.Register(w)

	h := &handle{id: 7}
	Dispatch(h, registry, reflect.TypeOf(""), "payload", "event", nil)
	assert.Same(t, h, gotHandle)
	assert.Equal(t, "payload", gotPayload)
}

func TestNewCallerRejectsNonFunc(t *testing.T) {
	_, err := On(42)
	assert.Error(t, err)
}

func TestNewCallerRejectsMultipleReturnValues(t *testing.T) {
	_, err := On(func() (int, error) { return 0, nil })
	assert.Error(t, err)
}
