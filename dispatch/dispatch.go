package dispatch

import (
	"reflect"
	"sync"

	"github.com/MaTriXy/wasync/internal/logger"
)

var log = logger.Get("dispatch")

// Resolver matches a registered key against a payload, used as the third
// matching strategy in spec §4.4 after event-name and type matching.
type Resolver interface {
	Resolve(key string, payload any) bool
}

// Registry holds the ordered set of registered Wrappers shared between a
// Socket and its Transport (spec §5 "shared resources").
type Registry struct {
	mu       sync.Mutex
	wrappers []*Wrapper
}

// NewRegistry returns an empty function registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends w, preserving registration order for dispatch.
func (r *Registry) Register(w *Wrapper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrappers = append(r.wrappers, w)
}

func (r *Registry) snapshot() []*Wrapper {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Wrapper, len(r.wrappers))
	copy(out, r.wrappers)
	return out
}

// Dispatch resolves (declaredType, payload, eventName) to zero or more
// registered callbacks, invoking each in registration order. A callback
// panic or returned error is logged and does not prevent later callbacks
// from running (spec §4.4, §7 "Callback" row).
func Dispatch(handle any, registry *Registry, declaredType reflect.Type, payload any, eventName string, resolver Resolver) {
	for _, w := range registry.snapshot() {
		if !w.matches(declaredType, eventName, resolver, payload) {
			continue
		}
		if err := w.caller.call(handle, payload); err != nil {
			log.Error(err, "callback error", "event", eventName)
		}
	}
}
