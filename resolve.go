package ioc

import (
	"context"
	"fmt"
	"iter"
	"reflect"
)

// Register is a generic helper that registers implementation under T.
func Register[T any](r Registrator, implementation any, reuse Reuse, opts ...RegisterOption) error {
	return r.Register(reflect.TypeFor[T](), implementation, reuse, opts...)
}

// RegisterInstance is a generic helper that registers instance as the
// singleton of T.
func RegisterInstance[T any](r Registrator, instance T, opts ...RegisterOption) error {
	return r.RegisterInstance(reflect.TypeFor[T](), instance, opts...)
}

// RegisterDelegate is a generic helper that registers a typed producer under T.
func RegisterDelegate[T any](r Registrator, delegate func(ctx context.Context, r Resolver) (T, error), reuse Reuse, opts ...RegisterOption) error {
	if delegate == nil {
		return r.RegisterDelegate(reflect.TypeFor[T](), nil, reuse, opts...)
	}

	d := func(ctx context.Context, r Resolver) (any, error) {
		return delegate(ctx, r)
	}

	if c, ok := r.(*Container); ok {
		return c.registerDelegate(reflect.TypeFor[T](), reflect.TypeFor[T](), d, reuse, buildRegisterOptions(opts))
	}
	return r.RegisterDelegate(reflect.TypeFor[T](), d, reuse, opts...)
}

// Unregister is a generic helper that removes every registration of T.
func Unregister[T any](r Registrator, opts ...RegisterOption) {
	r.Unregister(reflect.TypeFor[T](), opts...)
}

// Resolve is a generic helper function that resolves a service as type T.
func Resolve[T any](ctx context.Context, r Resolver, opts ...ResolveOption) (T, error) {
	var zero T

	instance, err := r.Resolve(ctx, reflect.TypeFor[T](), opts...)
	if err != nil {
		return zero, err
	}

	return assertService[T](instance)
}

// MustResolve resolves a service and panics on error.
func MustResolve[T any](ctx context.Context, r Resolver, opts ...ResolveOption) T {
	result, err := Resolve[T](ctx, r, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", formatType(reflect.TypeFor[T]()), err))
	}
	return result
}

// ResolveMany is a generic helper that lazily produces every T in
// registration order.
func ResolveMany[T any](ctx context.Context, r Resolver, opts ...ResolveOption) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for instance, err := range r.ResolveMany(ctx, reflect.TypeFor[T](), opts...) {
			if err != nil {
				if !yield(zero, err) {
					return
				}
				continue
			}

			result, err := assertService[T](instance)
			if !yield(result, err) {
				return
			}
		}
	}
}

// ResolveAll collects every T in registration order, stopping at the first error.
func ResolveAll[T any](ctx context.Context, r Resolver, opts ...ResolveOption) ([]T, error) {
	var results []T
	for result, err := range ResolveMany[T](ctx, r, opts...) {
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ResolveFactories is a generic helper that returns the registrations of T.
func ResolveFactories[T any](r Resolver, opts ...ResolveOption) []*Factory {
	return r.ResolveFactories(reflect.TypeFor[T](), opts...)
}

// Invoke is a generic helper that invokes f for T with f's reuse policy.
func Invoke[T any](ctx context.Context, c *Container, f *Factory) (T, error) {
	var zero T

	instance, err := f.Invoke(ctx, c, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}

	return assertService[T](instance)
}

func assertService[T any](instance any) (T, error) {
	var zero T
	if instance == nil {
		return zero, nil
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(instance),
			Context:  "type assertion",
		}
	}
	return result, nil
}
