// Package ioc provides an inversion-of-control service container for Go.
// Implementations are registered against service types and resolved into
// object graphs at runtime, with configurable reuse policies.
//
// # Overview
//
// The container offers:
//   - Three reuse policies: Transient, Singleton and Scoped
//   - Constructor injection, analyzed once at registration time
//   - Multiple registrations per service type, resolved in order by ResolveMany
//   - Contract keys partitioning registrations of one service type
//   - Deferred dependencies: []T, iter.Seq[T], *Lazy[T] and func() T
//   - Open generic registrations closed per set of type arguments
//   - Declarative registration records for plugin loaders
//   - Cloning a container to override registrations in isolation
//   - Goroutine-safe registration and resolution
//
// # Basic Usage
//
//	c := ioc.New()
//	defer c.Close()
//
//	ioc.Register[Logger](c, NewConsoleLogger, ioc.Transient)
//	ioc.Register[*ReportService](c, NewReportService, ioc.Singleton)
//
//	svc, err := ioc.Resolve[*ReportService](ctx, c)
//
// # Reuse Policies
//
//   - Transient: a new instance on every resolution
//   - Singleton: one instance, created on first resolution and shared afterwards
//   - Scoped: one instance per logical scope carried in a context.Context
//
// # Dependencies
//
// Constructor parameters are resolved from the container. The parameter's
// shape selects the strategy when the constructor is registered:
//
//	func NewReportService(
//	    newLogger func() Logger,        // a fresh resolution on every call
//	    store *ioc.Lazy[*Store],         // resolved on first Value()
//	    exporters []Exporter,           // every registered Exporter, in order
//	    hooks iter.Seq[Hook],           // resolved while iterating
//	) *ReportService
//
// A constructor taking a struct that embeds ioc.In is injected field by
// field; tags add contract keys and declared defaults.
//
// # Contract Keys
//
//	ioc.Register[Cache](c, NewRedisCache, ioc.Singleton, ioc.Keyed("redis"))
//	ioc.Register[Cache](c, NewMemoryCache, ioc.Singleton, ioc.Keyed("memory"))
//
//	cache, err := ioc.Resolve[Cache](ctx, c, ioc.Keyed("redis"))
//
// # Scopes
//
// A scope is one unit of work such as a request. It travels in the context,
// so goroutines handed that context share its scoped instances:
//
//	ctx, scope := c.BeginScope(r.Context())
//	defer scope.Finish(ctx)
//
// Resolutions made with a context carrying no scope use the container's root
// scope, which ScopeFinished finishes.
//
// # Open Generics
//
//	c.RegisterOpen(ioc.OpenTypeOf[*Box[any]](), ioc.Allocate, ioc.Singleton)
//	intBox, _ := ioc.Resolve[*Box[int]](ctx, c)
//
// # Error Handling
//
// Errors are typed and wrap sentinels for errors.Is:
//   - ResolutionError: not exactly one registration, or construction failed
//   - RegistrationError: a registration was rejected at registration time
//   - CircularDependencyError: a service requires itself while being built
//   - ConstructorPanicError: a constructor panicked
//   - DisposalError: closing instances failed
package ioc
