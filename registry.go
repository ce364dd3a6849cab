package ioc

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// registry is the authoritative store of registrations.
//
// Lists are kept in registration order; registering a key again appends.
// Reads return copies, so callers can iterate while others mutate.
// Every mutation bumps revision while holding the write lock.
type registry struct {
	mu sync.RWMutex

	// closed stores factories of closed service types
	closed map[ServiceKey][]*Factory

	// open stores factories of open generic service types
	open map[openKey][]*Factory

	revision atomic.Uint64
}

func newRegistry() *registry {
	return &registry{
		closed: make(map[ServiceKey][]*Factory),
		open:   make(map[openKey][]*Factory),
	}
}

// register appends f under every key in one critical section.
func (r *registry) register(keys []ServiceKey, f *Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range keys {
		r.closed[key] = append(r.closed[key], f)
	}
	r.revision.Add(1)
}

func (r *registry) registerOpen(key openKey, f *Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.open[key] = append(r.open[key], f)
	r.revision.Add(1)
}

// unregister removes every factory under key and returns them.
func (r *registry) unregister(key ServiceKey) []*Factory {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.closed[key]
	delete(r.closed, key)
	r.revision.Add(1)
	return removed
}

func (r *registry) unregisterOpen(key openKey) []*Factory {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.open[key]
	delete(r.open, key)
	r.revision.Add(1)
	return removed
}

// unregisterWhere removes, under the given contract key, every factory
// matching pred, whatever service type it is registered under.
func (r *registry) unregisterWhere(key any, pred func(*Factory) bool) []*Factory {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Factory
	for k, list := range r.closed {
		if k.Key != key {
			continue
		}
		kept := make([]*Factory, 0, len(list))
		for _, f := range list {
			if pred(f) {
				removed = append(removed, f)
			} else {
				kept = append(kept, f)
			}
		}
		if len(kept) == 0 {
			delete(r.closed, k)
		} else if len(kept) != len(list) {
			r.closed[k] = kept
		}
	}
	r.revision.Add(1)
	return removed
}

func (r *registry) unregisterAll() []*Factory {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Factory
	for _, list := range r.closed {
		removed = append(removed, list...)
	}
	for _, list := range r.open {
		removed = append(removed, list...)
	}

	r.closed = make(map[ServiceKey][]*Factory)
	r.open = make(map[openKey][]*Factory)
	r.revision.Add(1)
	return removed
}

// holds reports whether f is still registered under any key.
func (r *registry) holds(f *Factory) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, list := range r.closed {
		if slices.Contains(list, f) {
			return true
		}
	}
	for _, list := range r.open {
		if slices.Contains(list, f) {
			return true
		}
	}
	return false
}

// snapshot returns a copy of the factories for (t, key). When no closed
// registration exists and t is a generic instantiation, the open
// registrations of its generic type are returned instead.
func (r *registry) snapshot(t reflect.Type, key any) []*Factory {
	factories, _ := r.snapshotWithRevision(t, key)
	return factories
}

func (r *registry) snapshotWithRevision(t reflect.Type, key any) ([]*Factory, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.closed[ServiceKey{Type: t, Key: key}]
	if len(list) == 0 && len(r.open) > 0 {
		if open, _, ok := openTypeOf(t); ok {
			list = r.open[openKey{Type: open, Key: key}]
		}
	}

	return slices.Clone(list), r.revision.Load()
}

// clone returns a registry holding copies of every list. Factories are
// shared. The clone starts at the same revision but is a distinct registry,
// so fast-path cells of the source never validate against it.
func (r *registry) clone() *registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := &registry{
		closed: make(map[ServiceKey][]*Factory, len(r.closed)),
		open:   make(map[openKey][]*Factory, len(r.open)),
	}
	for k, list := range r.closed {
		cloned.closed[k] = slices.Clone(list)
		markShared(list)
	}
	for k, list := range r.open {
		cloned.open[k] = slices.Clone(list)
		markShared(list)
	}
	cloned.revision.Store(r.revision.Load())

	return cloned
}

func markShared(list []*Factory) {
	for _, f := range list {
		f.shared.Store(true)
	}
}

// count returns the number of registrations, counting a factory once per
// key it is registered under.
func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, list := range r.closed {
		n += len(list)
	}
	for _, list := range r.open {
		n += len(list)
	}
	return n
}

// keys returns every closed service key that has registrations.
func (r *registry) keys() []ServiceKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]ServiceKey, 0, len(r.closed))
	for k := range r.closed {
		keys = append(keys, k)
	}
	return keys
}

func (r *registry) openKeys() []openKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]openKey, 0, len(r.open))
	for k := range r.open {
		keys = append(keys, k)
	}
	return keys
}

func (r *registry) currentRevision() uint64 {
	return r.revision.Load()
}
