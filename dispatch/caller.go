package dispatch

import (
	"fmt"
	"reflect"
)

// caller wraps a user callback function and knows how to coerce a decoded
// payload into the callback's declared argument type, mirroring the
// teacher's reflect-based Caller (caller.go): a callback may optionally
// take a socket handle as its first argument, followed by the payload.
type caller struct {
	fn         reflect.Value
	needHandle bool
	handleType reflect.Type
	argType    reflect.Type // nil if the callback takes no payload argument
}

func newCaller(f any) (*caller, error) {
	fv := reflect.ValueOf(f)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("dispatch: callback is not a function, got %T", f)
	}

	ft := fv.Type()
	if ft.NumOut() > 1 {
		return nil, fmt.Errorf("dispatch: callback must return at most one value")
	}

	c := &caller{fn: fv}

	switch ft.NumIn() {
	case 0:
	case 1:
		c.argType = ft.In(0)
	case 2:
		c.needHandle = true
		c.handleType = ft.In(0)
		c.argType = ft.In(1)
	default:
		return nil, fmt.Errorf("dispatch: callback takes too many arguments")
	}

	return c, nil
}

// call invokes the callback, coercing payload into the callback's declared
// argument type. A mismatched payload type is reported rather than
// panicking the caller's goroutine.
func (c *caller) call(handle any, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: callback panicked: %v", r)
		}
	}()

	args := make([]reflect.Value, 0, 2)
	if c.needHandle {
		hv := reflect.ValueOf(handle)
		if !hv.IsValid() {
			hv = reflect.Zero(c.handleType)
		}
		args = append(args, hv)
	}

	if c.argType != nil {
		pv := reflect.ValueOf(payload)
		if !pv.IsValid() {
			pv = reflect.Zero(c.argType)
		} else if !pv.Type().AssignableTo(c.argType) {
			if pv.Type().ConvertibleTo(c.argType) {
				pv = pv.Convert(c.argType)
			} else {
				return fmt.Errorf("dispatch: payload type %s not assignable to callback argument %s", pv.Type(), c.argType)
			}
		}
		args = append(args, pv)
	}

	out := c.fn.Call(args)
	if len(out) == 1 {
		if e, ok := out[0].Interface().(error); ok && e != nil {
			return e
		}
	}
	return nil
}
