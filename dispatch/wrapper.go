package dispatch

import "reflect"

// Wrapper pairs a match-key with a user callback. Dispatch order follows
// registration order (spec §3 FunctionWrapper invariant).
type Wrapper struct {
	// EventKey matches when equal to the event name being dispatched.
	EventKey string
	// TypeKey matches when it is assignable from the declared payload type.
	TypeKey reflect.Type
	// Wildcard matches every dispatch, regardless of event or type.
	Wildcard bool

	fn     reflect.Value
	caller *caller
}

// OnEvent registers fn to run for messages whose event name equals event.
func OnEvent(event string, fn any) (*Wrapper, error) {
	c, err := newCaller(fn)
	if err != nil {
		return nil, err
	}
	return &Wrapper{EventKey: event, fn: reflect.ValueOf(fn), caller: c}, nil
}

// OnType registers fn to run for messages whose declared payload type is
// assignable to sample's type.
func OnType(sample any, fn any) (*Wrapper, error) {
	c, err := newCaller(fn)
	if err != nil {
		return nil, err
	}
	return &Wrapper{TypeKey: reflect.TypeOf(sample), fn: reflect.ValueOf(fn), caller: c}, nil
}

// On registers fn as a wildcard, matching every dispatch.
func On(fn any) (*Wrapper, error) {
	c, err := newCaller(fn)
	if err != nil {
		return nil, err
	}
	return &Wrapper{Wildcard: true, fn: reflect.ValueOf(fn), caller: c}, nil
}

func (w *Wrapper) matches(declaredType reflect.Type, eventName string, resolver Resolver, payload any) bool {
	if w.Wildcard {
		return true
	}
	if w.EventKey != "" && w.EventKey == eventName {
		return true
	}
	if w.TypeKey != nil && declaredType != nil && declaredType.AssignableTo(w.TypeKey) {
		return true
	}
	if resolver != nil {
		key := w.EventKey
		if key == "" && w.TypeKey != nil {
			key = w.TypeKey.String()
		}
		if resolver.Resolve(key, payload) {
			return true
		}
	}
	return false
}
