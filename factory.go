package ioc

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// Factory is one registration: a producer plus its reuse policy. It is
// created at registration time and shared by every container cloned from
// the one it was registered in, so its singleton instances are shared too.
//
// Factories are returned by ResolveFactories for callers that want to
// inspect a registration or defer construction.
type Factory struct {
	reuse    Reuse
	implType reflect.Type
	open     *OpenType
	deps     []Dependency

	// produce builds one instance for the requested closed service type.
	produce func(ctx context.Context, c *Container, serviceType reflect.Type) (any, error)

	// single is the singleton slot of a closed factory.
	single slot

	// generic holds singleton slots of an open factory by type-argument key.
	generic sync.Map

	// shared is set once the factory is registered in more than one
	// container through Clone.
	shared atomic.Bool
}

// Reuse returns the reuse policy of the factory.
func (f *Factory) Reuse() Reuse {
	return f.reuse
}

// ImplementationType returns the type the factory produces. It is nil for
// delegates registered without a typed result and for open registrations,
// whose implementation type depends on the requested service type.
func (f *Factory) ImplementationType() reflect.Type {
	return f.implType
}

// Dependencies returns the injected parameters of the factory's constructor.
// It is empty for instances, delegates and open registrations.
func (f *Factory) Dependencies() []Dependency {
	return slices.Clone(f.deps)
}

// OpenType returns the open service type of an open generic registration.
func (f *Factory) OpenType() (OpenType, bool) {
	if f.open == nil {
		return OpenType{}, false
	}
	return *f.open, true
}

// Invoke produces an instance for serviceType, applying the reuse policy.
// Scoped instances are taken from the scope carried by ctx, or from the
// container's root scope when ctx carries none.
func (f *Factory) Invoke(ctx context.Context, c *Container, serviceType reflect.Type) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c == nil {
		return nil, ErrContainerNil
	}

	switch f.reuse {
	case Singleton:
		s := f.singletonSlot(serviceType)
		if v, ok := s.load(); ok {
			return v, nil
		}
		v, created, err := f.fill(ctx, c, serviceType, s)
		if created && err == nil {
			c.singletons.track(v)
		}
		return v, err

	case Scoped:
		scope := c.scopeOf(ctx)
		state := scope.current()
		s := state.slot(f, f.argKey(serviceType))
		if v, ok := s.load(); ok {
			return v, nil
		}
		v, created, err := f.fill(ctx, c, serviceType, s)
		if created && err == nil {
			state.track(ctx, v)
		}
		return v, err

	default:
		ctx, fr, err := enter(ctx, f, serviceType, nil)
		if err != nil {
			return nil, err
		}
		defer fr.leave()
		return f.produce(ctx, c, serviceType)
	}
}

// fill constructs the slot's value unless another caller already did.
// The cycle check runs before the slot lock is taken, and covers every
// service type sharing the slot.
func (f *Factory) fill(ctx context.Context, c *Container, serviceType reflect.Type, s *slot) (any, bool, error) {
	ctx, fr, err := enter(ctx, f, serviceType, s)
	if err != nil {
		return nil, false, err
	}
	defer fr.leave()

	return s.loadOrCreate(func() (any, error) {
		return f.produce(ctx, c, serviceType)
	})
}

func (f *Factory) singletonSlot(serviceType reflect.Type) *slot {
	if f.open == nil {
		return &f.single
	}

	args := f.argKey(serviceType)
	if s, ok := f.generic.Load(args); ok {
		return s.(*slot)
	}
	s, _ := f.generic.LoadOrStore(args, new(slot))
	return s.(*slot)
}

// singletons returns the singleton instances constructed so far.
func (f *Factory) singletons() []any {
	var instances []any
	if v, ok := f.single.load(); ok {
		instances = append(instances, v)
	}
	f.generic.Range(func(_, s any) bool {
		if v, ok := s.(*slot).load(); ok {
			instances = append(instances, v)
		}
		return true
	})
	return instances
}

func (f *Factory) argKey(serviceType reflect.Type) string {
	if f.open == nil {
		return ""
	}
	return TypeArguments(serviceType)
}

func (f *Factory) String() string {
	impl := "<delegate>"
	switch {
	case f.open != nil:
		impl = f.open.String()
	case f.implType != nil:
		impl = formatType(f.implType)
	}
	return fmt.Sprintf("%s(%s)", f.reuse, impl)
}

// slot holds one lazily constructed instance. Once published the value never
// changes, and reading it takes no lock.
type slot struct {
	mu    sync.Mutex
	done  atomic.Bool
	value any
}

func (s *slot) load() (any, bool) {
	if s.done.Load() {
		return s.value, true
	}
	return nil, false
}

func (s *slot) loadOrCreate(create func() (any, error)) (any, bool, error) {
	if v, ok := s.load(); ok {
		return v, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done.Load() {
		return s.value, false, nil
	}

	v, err := create()
	if err != nil {
		return nil, false, err
	}

	s.value = v
	s.done.Store(true)
	return v, true, nil
}

// frame records a construction in progress on the current logical call chain.
type frame struct {
	factory     *Factory
	serviceType reflect.Type
	slot        *slot
	parent      *frame
	done        atomic.Bool
}

type frameContextKey struct{}

// enter pushes a frame for f, failing when the same factory is already
// constructing the same service type further up the chain, or when s is
// already being filled under any service type. Frames of finished
// constructions are ignored, so thunks that outlive their constructor do not
// report false cycles.
func enter(ctx context.Context, f *Factory, serviceType reflect.Type, s *slot) (context.Context, *frame, error) {
	parent, _ := ctx.Value(frameContextKey{}).(*frame)

	for fr := parent; fr != nil; fr = fr.parent {
		if fr.done.Load() {
			continue
		}
		if fr.factory == f && (fr.serviceType == serviceType || s != nil && fr.slot == s) {
			return ctx, nil, CircularDependencyError{Path: parent.path(serviceType)}
		}
	}

	fr := &frame{factory: f, serviceType: serviceType, slot: s, parent: parent}
	return context.WithValue(ctx, frameContextKey{}, fr), fr, nil
}

func (fr *frame) leave() {
	fr.done.Store(true)
}

func (fr *frame) path(last reflect.Type) []reflect.Type {
	var path []reflect.Type
	for f := fr; f != nil; f = f.parent {
		if !f.done.Load() {
			path = append(path, f.serviceType)
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return append(path, last)
}
