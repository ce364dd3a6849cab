package ioc

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"iter"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Resolver is the resolution surface of a Container. Delegates receive it to
// resolve their own dependencies.
type Resolver interface {
	// Resolve returns the single service registered for serviceType.
	Resolve(ctx context.Context, serviceType reflect.Type, opts ...ResolveOption) (any, error)

	// ResolveMany lazily produces every service registered for serviceType,
	// in registration order.
	ResolveMany(ctx context.Context, serviceType reflect.Type, opts ...ResolveOption) iter.Seq2[any, error]

	// ResolveFactories returns the registrations for serviceType without invoking them.
	ResolveFactories(serviceType reflect.Type, opts ...ResolveOption) []*Factory
}

// Registrator is the registration surface of a Container.
type Registrator interface {
	Register(serviceType reflect.Type, implementation any, reuse Reuse, opts ...RegisterOption) error
	RegisterMany(serviceTypes []reflect.Type, implementation any, reuse Reuse, opts ...RegisterOption) error
	RegisterInstance(serviceType reflect.Type, instance any, opts ...RegisterOption) error
	RegisterDelegate(serviceType reflect.Type, delegate Delegate, reuse Reuse, opts ...RegisterOption) error
	RegisterOpen(open OpenType, closer Closer, reuse Reuse, opts ...RegisterOption) error
	RegisterDeclared(candidates ...any) error

	Unregister(serviceType reflect.Type, opts ...RegisterOption)
	UnregisterOpen(open OpenType, opts ...RegisterOption)
	UnregisterImplementation(implType reflect.Type, opts ...RegisterOption)
	UnregisterAll()
}

// Delegate produces a service from code instead of a constructor.
type Delegate func(ctx context.Context, r Resolver) (any, error)

// Container registers implementations against service types and resolves
// object graphs with Transient, Singleton or Scoped reuse.
//
// All methods are safe for concurrent use. A new container registers itself
// as *Container, Resolver and Registrator.
//
// Example:
//
//	c := ioc.New()
//	defer c.Close()
//
//	ioc.Register[Logger](c, NewConsoleLogger, ioc.Transient)
//	ioc.Register[*ReportService](c, NewReportService, ioc.Singleton)
//
//	svc, err := ioc.Resolve[*ReportService](ctx, c)
type Container struct {
	id     string
	reg    *registry
	logger *slog.Logger

	// root is used when a resolution context carries no scope.
	root *Scope

	// singletons tracks disposable singletons constructed through this container.
	singletons *lifecycleManager

	deps   dependencyResolver
	closed atomic.Bool
	stats  counters
}

type counters struct {
	resolutions atomic.Uint64
	failures    atomic.Uint64
	fastHits    atomic.Uint64
	fastMisses  atomic.Uint64
}

var (
	_ Resolver    = (*Container)(nil)
	_ Registrator = (*Container)(nil)
)

var (
	containerType   = reflect.TypeFor[*Container]()
	resolverType    = reflect.TypeFor[Resolver]()
	registratorType = reflect.TypeFor[Registrator]()
)

// New creates an empty container.
func New(opts ...Option) *Container {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt.applyContainer(&options)
		}
	}

	c := newContainer(newRegistry(), options.logger)
	c.registerSelf()
	c.logger.Debug("container created", "container", c.id)
	return c
}

func newContainer(reg *registry, logger *slog.Logger) *Container {
	c := &Container{
		id:         uuid.NewString(),
		reg:        reg,
		logger:     logger,
		root:       newScope(logger),
		singletons: newLifecycleManager(),
	}
	c.deps = dependencyResolver{c: c}
	return c
}

func (c *Container) registerSelf() {
	f := instanceFactory(c)
	c.reg.register([]ServiceKey{
		{Type: containerType},
		{Type: resolverType},
		{Type: registratorType},
	}, f)
}

// ID returns the unique ID of this container.
func (c *Container) ID() string {
	return c.id
}

// ========================================
// Registration
// ========================================

// Register registers implementation under serviceType. The implementation is
// a constructor function, an Implementation or the reflect.Type of a struct
// to allocate. Its constructor is analyzed now: unusable constructors and
// parameters fail here rather than at resolution time.
//
// Registering a service type again appends; ResolveMany returns every
// registration in order, while Resolve requires exactly one.
func (c *Container) Register(serviceType reflect.Type, implementation any, reuse Reuse, opts ...RegisterOption) error {
	if serviceType == nil {
		return ValidationError{Cause: ErrServiceTypeNil}
	}
	return c.registerMany("register", []reflect.Type{serviceType}, implementation, reuse, buildRegisterOptions(opts), keepTypes)
}

// RegisterMany registers one implementation under several service types. All
// of them share a single factory, so a singleton is the same instance under
// every type. Except removes types. The listed service types are otherwise
// registered as given, unexported ones included. With no service types
// given, the implementation type itself is used, and it is skipped when
// unexported unless NonPublic is given.
func (c *Container) RegisterMany(serviceTypes []reflect.Type, implementation any, reuse Reuse, opts ...RegisterOption) error {
	return c.registerMany("register-many", serviceTypes, implementation, reuse, buildRegisterOptions(opts), exceptTypes)
}

// typeFilter selects how registerMany narrows its service types.
type typeFilter int

const (
	// keepTypes registers exactly the given types.
	keepTypes typeFilter = iota
	// exceptTypes removes duplicates and Except types.
	exceptTypes
	// publicTypes also removes unexported types unless NonPublic is given.
	publicTypes
)

func (c *Container) registerMany(op string, serviceTypes []reflect.Type, implementation any, reuse Reuse, ro registerOptions, filter typeFilter) error {
	var first reflect.Type
	if len(serviceTypes) > 0 {
		first = serviceTypes[0]
	}

	fail := func(err error) error {
		return RegistrationError{ServiceType: first, Operation: op, Cause: err}
	}

	if err := c.checkRegistration(reuse, ro.key); err != nil {
		return fail(err)
	}

	bp, err := compile(implementation)
	if err != nil {
		return fail(err)
	}

	if len(serviceTypes) == 0 {
		serviceTypes = []reflect.Type{bp.implType}
		first = bp.implType
		filter = max(filter, publicTypes)
	}
	if filter != keepTypes {
		serviceTypes = filterServiceTypes(serviceTypes, ro, filter == publicTypes)
		if len(serviceTypes) == 0 {
			return fail(ErrNoServiceTypes)
		}
	}

	keys := make([]ServiceKey, 0, len(serviceTypes))
	for _, t := range serviceTypes {
		if t == nil {
			return fail(ErrServiceTypeNil)
		}
		if !bp.implType.AssignableTo(t) {
			return RegistrationError{
				ServiceType: t,
				Operation:   op,
				Cause:       TypeMismatchError{Expected: t, Actual: bp.implType, Context: "registration"},
			}
		}
		keys = append(keys, ServiceKey{Type: t, Key: ro.key})
	}

	f := &Factory{reuse: reuse, implType: bp.implType, deps: bp.deps}
	f.produce = func(ctx context.Context, c *Container, _ reflect.Type) (any, error) {
		return bp.build(ctx, c.deps)
	}

	c.reg.register(keys, f)
	c.logger.Debug("registered service",
		"services", keys,
		"implementation", formatType(bp.implType),
		"reuse", reuse,
	)
	return nil
}

// RegisterInstance registers an existing value as a singleton. The container
// does not close it.
func (c *Container) RegisterInstance(serviceType reflect.Type, instance any, opts ...RegisterOption) error {
	ro := buildRegisterOptions(opts)
	fail := func(err error) error {
		return RegistrationError{ServiceType: serviceType, Operation: "register-instance", Cause: err}
	}

	if serviceType == nil {
		return ValidationError{Cause: ErrServiceTypeNil}
	}
	if err := c.checkRegistration(Singleton, ro.key); err != nil {
		return fail(err)
	}
	if instance != nil && !reflect.TypeOf(instance).AssignableTo(serviceType) {
		return fail(TypeMismatchError{Expected: serviceType, Actual: reflect.TypeOf(instance), Context: "registration"})
	}

	c.reg.register([]ServiceKey{{Type: serviceType, Key: ro.key}}, instanceFactory(instance))
	c.logger.Debug("registered instance", "service", formatType(serviceType), "key", ro.key)
	return nil
}

func instanceFactory(instance any) *Factory {
	f := &Factory{reuse: Singleton, implType: reflect.TypeOf(instance)}
	f.produce = func(context.Context, *Container, reflect.Type) (any, error) {
		return instance, nil
	}
	f.single.value = instance
	f.single.done.Store(true)
	return f
}

// RegisterDelegate registers a producer function under serviceType.
func (c *Container) RegisterDelegate(serviceType reflect.Type, delegate Delegate, reuse Reuse, opts ...RegisterOption) error {
	return c.registerDelegate(serviceType, nil, delegate, reuse, buildRegisterOptions(opts))
}

func (c *Container) registerDelegate(serviceType, implType reflect.Type, delegate Delegate, reuse Reuse, ro registerOptions) error {
	fail := func(err error) error {
		return RegistrationError{ServiceType: serviceType, Operation: "register-delegate", Cause: err}
	}

	if serviceType == nil {
		return ValidationError{Cause: ErrServiceTypeNil}
	}
	if delegate == nil {
		return fail(ErrConstructorNil)
	}
	if err := c.checkRegistration(reuse, ro.key); err != nil {
		return fail(err)
	}

	f := &Factory{reuse: reuse, implType: implType}
	f.produce = func(ctx context.Context, c *Container, serviceType reflect.Type) (any, error) {
		return callDelegate(ctx, c, delegate, serviceType)
	}

	c.reg.register([]ServiceKey{{Type: serviceType, Key: ro.key}}, f)
	c.logger.Debug("registered delegate", "service", formatType(serviceType), "key", ro.key, "reuse", reuse)
	return nil
}

func callDelegate(ctx context.Context, c *Container, delegate Delegate, serviceType reflect.Type) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = ConstructorPanicError{Implementation: serviceType, Panic: p, Stack: debug.Stack()}
		}
	}()

	v, err = delegate(ctx, c)
	if err != nil {
		var cycle CircularDependencyError
		if errors.As(err, &cycle) {
			return nil, err
		}
		return nil, ConstructorInvocationError{Implementation: serviceType, Cause: err}
	}
	if v != nil && !reflect.TypeOf(v).AssignableTo(serviceType) {
		return nil, TypeMismatchError{Expected: serviceType, Actual: reflect.TypeOf(v), Context: "delegate result"}
	}
	return v, nil
}

// RegisterOpen registers an open generic service type. When a closed
// instantiation is requested and no closed registration exists for it, the
// closer supplies the implementation for that instantiation. Singletons and
// scoped instances are kept per distinct set of type arguments.
//
// Example:
//
//	c.RegisterOpen(ioc.OpenTypeOf[*Box[any]](), ioc.Allocate, ioc.Singleton)
//	a, _ := ioc.Resolve[*Box[int]](ctx, c)
//	b, _ := ioc.Resolve[*Box[string]](ctx, c) // a distinct singleton
func (c *Container) RegisterOpen(open OpenType, closer Closer, reuse Reuse, opts ...RegisterOption) error {
	ro := buildRegisterOptions(opts)
	fail := func(err error) error {
		return RegistrationError{Operation: "register-open", Cause: fmt.Errorf("%s: %w", open, err)}
	}

	if !open.IsValid() {
		return fail(ErrOpenTypeInvalid)
	}
	if closer == nil {
		return fail(ErrCloserNil)
	}
	if err := c.checkRegistration(reuse, ro.key); err != nil {
		return fail(err)
	}

	f := &Factory{reuse: reuse, open: &open}
	f.produce = openProducer(open, closer)

	c.reg.registerOpen(openKey{Type: open, Key: ro.key}, f)
	c.logger.Debug("registered open service", "service", open.String(), "key", ro.key, "reuse", reuse)
	return nil
}

// openProducer compiles the closer's implementation once per closed type.
// A failing closer is not cached.
func openProducer(open OpenType, closer Closer) func(context.Context, *Container, reflect.Type) (any, error) {
	var blueprints sync.Map // reflect.Type -> *blueprint

	return func(ctx context.Context, c *Container, serviceType reflect.Type) (any, error) {
		var bp *blueprint
		if cached, ok := blueprints.Load(serviceType); ok {
			bp = cached.(*blueprint)
		} else {
			impl, err := closer(serviceType)
			if err != nil {
				return nil, fmt.Errorf("closing %s: %w", open, err)
			}
			bp, err = compile(impl)
			if err != nil {
				return nil, fmt.Errorf("closing %s: %w", open, err)
			}
			if !bp.implType.AssignableTo(serviceType) {
				return nil, TypeMismatchError{Expected: serviceType, Actual: bp.implType, Context: "open generic instantiation"}
			}
			cached, _ := blueprints.LoadOrStore(serviceType, bp)
			bp = cached.(*blueprint)
		}
		return bp.build(ctx, c.deps)
	}
}

func (c *Container) checkRegistration(reuse Reuse, key any) error {
	if c.closed.Load() {
		return ErrContainerClosed
	}
	if !reuse.IsValid() {
		return ReuseError{Value: int(reuse)}
	}
	return validateKey(key)
}

// filterServiceTypes drops nil, duplicate and excepted types, and unexported
// ones when publicOnly is set and NonPublic was not given.
func filterServiceTypes(types []reflect.Type, ro registerOptions, publicOnly bool) []reflect.Type {
	filtered := make([]reflect.Type, 0, len(types))
	seen := make(map[reflect.Type]struct{}, len(types))

	for _, t := range types {
		if t == nil {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		excluded := false
		for _, ex := range ro.except {
			if ex == t {
				excluded = true
				break
			}
		}
		if excluded || (publicOnly && !ro.nonPublic && !isPublicType(t)) {
			continue
		}
		filtered = append(filtered, t)
	}

	return filtered
}

// isPublicType reports whether a named type, after removing pointers and
// slices, is exported. Unnamed types count as public.
func isPublicType(t reflect.Type) bool {
	for t.Name() == "" && (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return true
	}
	return token.IsExported(t.Name())
}

// ========================================
// Unregistration
// ========================================

// Unregister removes every registration of serviceType under the given
// contract key, including ones cached on the fast path.
func (c *Container) Unregister(serviceType reflect.Type, opts ...RegisterOption) {
	ro := buildRegisterOptions(opts)
	if !c.usableKey("unregister", ro.key) {
		return
	}
	removed := c.reg.unregister(ServiceKey{Type: serviceType, Key: ro.key})
	c.release(removed)
	c.logger.Debug("unregistered service", "service", formatType(serviceType), "key", ro.key, "removed", len(removed))
}

// UnregisterOpen removes every registration of an open generic service type
// under the given contract key.
func (c *Container) UnregisterOpen(open OpenType, opts ...RegisterOption) {
	ro := buildRegisterOptions(opts)
	if !c.usableKey("unregister-open", ro.key) {
		return
	}
	removed := c.reg.unregisterOpen(openKey{Type: open, Key: ro.key})
	c.release(removed)
	c.logger.Debug("unregistered open service", "service", open.String(), "key", ro.key, "removed", len(removed))
}

// UnregisterImplementation removes, under the given contract key, every
// registration whose implementation type is implType, whatever service type
// it was registered under.
func (c *Container) UnregisterImplementation(implType reflect.Type, opts ...RegisterOption) {
	ro := buildRegisterOptions(opts)
	if !c.usableKey("unregister-implementation", ro.key) {
		return
	}
	removed := c.reg.unregisterWhere(ro.key, func(f *Factory) bool {
		return f.implType != nil && f.implType == implType
	})
	c.release(removed)
	c.logger.Debug("unregistered implementation", "implementation", formatType(implType), "key", ro.key, "removed", len(removed))
}

// usableKey reports whether key can index the registry. Operations without
// an error result ignore a key that cannot.
func (c *Container) usableKey(op string, key any) bool {
	if err := validateKey(key); err != nil {
		c.logger.Warn("ignoring invalid contract key", "operation", op, "error", err)
		return false
	}
	return true
}

// release stops tracking the singletons of removed factories this container
// no longer serves, so they are not kept alive until Close. Factories shared
// with a clone stay tracked, as the clone may still hand them out.
func (c *Container) release(removed []*Factory) {
	for _, f := range removed {
		if f.reuse != Singleton || f.shared.Load() || c.reg.holds(f) {
			continue
		}
		for _, v := range f.singletons() {
			c.singletons.untrack(v)
		}
	}
}

// UnregisterAll removes every registration, including the container's own.
func (c *Container) UnregisterAll() {
	c.release(c.reg.unregisterAll())
	c.logger.Debug("unregistered all services", "container", c.id)
}

// ========================================
// Resolution
// ========================================

// Resolve returns the single service registered for serviceType. When there
// is not exactly one registration it returns a ResolutionError wrapping
// ErrServiceNotFound or ErrAmbiguousService, or, with OrDefault, the zero
// value of serviceType and no error.
//
// Unkeyed lookups go through a lock-free cache validated by the registry
// revision.
func (c *Container) Resolve(ctx context.Context, serviceType reflect.Type, opts ...ResolveOption) (any, error) {
	ro := buildResolveOptions(opts)
	return c.resolve(ctx, serviceType, ro.key, ro.ifUnresolved)
}

func (c *Container) resolve(ctx context.Context, serviceType reflect.Type, key any, policy IfUnresolved) (any, error) {
	if serviceType == nil {
		return nil, ValidationError{Cause: ErrServiceTypeNil}
	}
	if err := validateKey(key); err != nil {
		return nil, ValidationError{ServiceType: serviceType, Cause: err}
	}
	if c.closed.Load() {
		return nil, ResolutionError{ServiceType: serviceType, ServiceKey: key, Cause: ErrContainerClosed}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.stats.resolutions.Add(1)

	var (
		single *Factory
		count  int
	)
	if key == nil {
		cell := c.cachedFactories(serviceType)
		single, count = cell.single, len(cell.factories)
	} else {
		factories := c.reg.snapshot(serviceType, key)
		if count = len(factories); count == 1 {
			single = factories[0]
		}
	}

	if single == nil {
		if policy == ReturnDefault {
			return reflect.Zero(serviceType).Interface(), nil
		}

		c.stats.failures.Add(1)
		cause := ErrServiceNotFound
		if count > 1 {
			cause = ErrAmbiguousService
		}
		return nil, ResolutionError{ServiceType: serviceType, ServiceKey: key, Count: count, Cause: cause}
	}

	v, err := single.Invoke(ctx, c, serviceType)
	if err != nil {
		c.stats.failures.Add(1)
		return nil, ResolutionError{ServiceType: serviceType, ServiceKey: key, Count: 1, Cause: err}
	}
	return v, nil
}

// ResolveMany returns a sequence producing every service registered for
// serviceType in registration order. Nothing is looked up or constructed
// until the sequence is iterated. It is empty when nothing is registered.
func (c *Container) ResolveMany(ctx context.Context, serviceType reflect.Type, opts ...ResolveOption) iter.Seq2[any, error] {
	ro := buildResolveOptions(opts)

	return func(yield func(any, error) bool) {
		_ = c.each(ctx, serviceType, ro.key, func(v any, err error) bool {
			return yield(v, err)
		})
	}
}

// each invokes every factory for serviceType, passing each result to yield.
func (c *Container) each(ctx context.Context, serviceType reflect.Type, key any, yield func(any, error) bool) error {
	if serviceType == nil {
		err := ValidationError{Cause: ErrServiceTypeNil}
		yield(nil, err)
		return err
	}
	if keyErr := validateKey(key); keyErr != nil {
		err := ValidationError{ServiceType: serviceType, Cause: keyErr}
		yield(nil, err)
		return err
	}
	if c.closed.Load() {
		err := ResolutionError{ServiceType: serviceType, ServiceKey: key, Cause: ErrContainerClosed}
		yield(nil, err)
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var factories []*Factory
	if key == nil {
		factories = c.cachedFactories(serviceType).factories
	} else {
		factories = c.reg.snapshot(serviceType, key)
	}

	for _, f := range factories {
		c.stats.resolutions.Add(1)
		v, err := f.Invoke(ctx, c, serviceType)
		if err != nil {
			c.stats.failures.Add(1)
			err = ResolutionError{ServiceType: serviceType, ServiceKey: key, Count: len(factories), Cause: err}
		}
		if !yield(v, err) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ResolveFactories returns the registrations for serviceType, in order,
// without invoking them. It returns nil for a key that cannot be registered.
func (c *Container) ResolveFactories(serviceType reflect.Type, opts ...ResolveOption) []*Factory {
	ro := buildResolveOptions(opts)
	if serviceType == nil || !c.usableKey("resolve-factories", ro.key) {
		return nil
	}
	return c.reg.snapshot(serviceType, ro.key)
}

// ========================================
// Scopes and lifecycle
// ========================================

// BeginScope starts a new logical scope logging through the container's logger.
func (c *Container) BeginScope(ctx context.Context) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := newScope(c.logger)
	return WithScope(ctx, s), s
}

// scopeOf returns the scope carried by ctx, or the root scope.
func (c *Container) scopeOf(ctx context.Context) *Scope {
	if s, ok := ScopeFromContext(ctx); ok {
		return s
	}
	return c.root
}

// DisposeScopeOnFinish registers d to be closed when the scope carried by
// ctx (or the root scope) finishes.
func (c *Container) DisposeScopeOnFinish(ctx context.Context, d any) error {
	return c.scopeOf(ctx).DisposeOnFinish(ctx, d)
}

// ScopeFinished finishes the scope carried by ctx, or the root scope.
// Calling it again is a no-op until new scoped instances are created.
func (c *Container) ScopeFinished(ctx context.Context) error {
	return c.scopeOf(ctx).Finish(ctx)
}

// Clone returns an independent container holding a copy of every
// registration list. Registering or unregistering in either container does
// not affect the other; factories, and so singletons, are shared. The clone
// registers itself in place of the source as *Container, Resolver and
// Registrator.
func (c *Container) Clone() *Container {
	cloned := newContainer(c.reg.clone(), c.logger)

	cloned.reg.unregister(ServiceKey{Type: containerType})
	cloned.reg.unregister(ServiceKey{Type: resolverType})
	cloned.reg.unregister(ServiceKey{Type: registratorType})
	cloned.registerSelf()

	c.logger.Debug("container cloned", "container", c.id, "clone", cloned.id)
	return cloned
}

// Close finishes the root scope, closes disposable singletons constructed
// through this container and removes every registration. Further
// registrations and resolutions fail with ErrContainerClosed.
func (c *Container) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if err := c.root.Finish(context.Background()); err != nil {
		var de DisposalError
		if errors.As(err, &de) {
			errs = append(errs, de.Errors...)
		} else {
			errs = append(errs, err)
		}
	}
	errs = append(errs, c.singletons.dispose(context.Background())...)

	c.reg.unregisterAll()

	if len(errs) > 0 {
		err := DisposalError{Context: "container", Errors: errs}
		c.logger.Error("failed to close container", "container", c.id, "error", err)
		return err
	}

	c.logger.Debug("container closed", "container", c.id)
	return nil
}

// IsClosed reports whether Close has been called.
func (c *Container) IsClosed() bool {
	return c.closed.Load()
}

// Count returns the number of registrations, counting a factory once per
// service type it is registered under.
func (c *Container) Count() int {
	return c.reg.count()
}

// Revision returns the registry revision. It increases on every mutation.
func (c *Container) Revision() uint64 {
	return c.reg.currentRevision()
}

// Stats is a point-in-time view of container counters.
type Stats struct {
	ID             string
	Registrations  int
	Revision       uint64
	Resolutions    uint64
	Failures       uint64
	FastPathHits   uint64
	FastPathMisses uint64
	RootScoped     int
}

// Stats returns the current counters.
func (c *Container) Stats() Stats {
	return Stats{
		ID:             c.id,
		Registrations:  c.reg.count(),
		Revision:       c.reg.currentRevision(),
		Resolutions:    c.stats.resolutions.Load(),
		Failures:       c.stats.failures.Load(),
		FastPathHits:   c.stats.fastHits.Load(),
		FastPathMisses: c.stats.fastMisses.Load(),
		RootScoped:     c.root.Len(),
	}
}

// ServiceKeys returns every closed service key with at least one registration.
func (c *Container) ServiceKeys() []ServiceKey {
	return c.reg.keys()
}

// dependencyResolver adapts a Container to the resolver compiled
// constructors call back into.
type dependencyResolver struct {
	c *Container
}

func (d dependencyResolver) Resolve(ctx context.Context, t reflect.Type, key any) (any, error) {
	return d.c.resolve(ctx, t, key, Throw)
}

func (d dependencyResolver) TryResolve(ctx context.Context, t reflect.Type, key any) (any, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, ValidationError{ServiceType: t, Cause: err}
	}

	var factories []*Factory
	if key == nil {
		factories = d.c.cachedFactories(t).factories
	} else {
		factories = d.c.reg.snapshot(t, key)
	}
	if len(factories) != 1 {
		return nil, false, nil
	}

	v, err := d.c.resolve(ctx, t, key, ReturnDefault)
	return v, err == nil, err
}

func (d dependencyResolver) ResolveMany(ctx context.Context, t reflect.Type, key any) ([]any, error) {
	var items []any
	var failed error
	d.c.each(ctx, t, key, func(v any, err error) bool {
		if err != nil {
			failed = err
			return false
		}
		items = append(items, v)
		return true
	})
	return items, failed
}

func (d dependencyResolver) Each(ctx context.Context, t reflect.Type, key any, yield func(any) bool) error {
	var failed error
	d.c.each(ctx, t, key, func(v any, err error) bool {
		if err != nil {
			failed = err
			return false
		}
		return yield(v)
	})
	return failed
}
