package reflection

import (
	"context"
	"fmt"
	"reflect"
)

// DependencyResolver is what compiled bindings call back into at
// construction time.
type DependencyResolver interface {
	// Resolve returns the single service registered for t and key.
	Resolve(ctx context.Context, t reflect.Type, key any) (any, error)

	// TryResolve is like Resolve but reports an unresolved service with
	// found == false instead of an error.
	TryResolve(ctx context.Context, t reflect.Type, key any) (v any, found bool, err error)

	// ResolveMany returns every registered service for t and key, in
	// registration order.
	ResolveMany(ctx context.Context, t reflect.Type, key any) ([]any, error)

	// Each produces registered services one at a time until yield returns false.
	Each(ctx context.Context, t reflect.Type, key any, yield func(any) bool) error
}

// Invoker builds one instance. It is produced once per constructor by Compile.
type Invoker func(ctx context.Context, r DependencyResolver) (reflect.Value, error)

type argFunc func(ctx context.Context, r DependencyResolver) (reflect.Value, error)

// Compile binds a constructor value to its signature. Every strategy decision
// is taken here so that an invocation only resolves arguments and calls fn.
func (s *Signature) Compile(fn reflect.Value) Invoker {
	args := make([]argFunc, len(s.Bindings))
	for i := range s.Bindings {
		args[i] = s.Bindings[i].compile()
	}

	call := func(in []reflect.Value) (reflect.Value, error) {
		out := fn.Call(in)
		if s.ReturnsError {
			if errVal := out[1]; !errVal.IsNil() {
				return out[0], errVal.Interface().(error)
			}
		}
		return out[0], nil
	}

	if s.ParamObject != nil {
		structType := s.ParamObject
		isPtr := structType.Kind() == reflect.Pointer
		if isPtr {
			structType = structType.Elem()
		}
		bindings := s.Bindings

		return func(ctx context.Context, r DependencyResolver) (reflect.Value, error) {
			obj := reflect.New(structType)
			elem := obj.Elem()
			for i, arg := range args {
				v, err := arg(ctx, r)
				if err != nil {
					return reflect.Value{}, fmt.Errorf("field %s: %w", bindings[i].Name, err)
				}
				elem.Field(bindings[i].Field).Set(v)
			}
			if isPtr {
				return call([]reflect.Value{obj})
			}
			return call([]reflect.Value{elem})
		}
	}

	if len(args) == 0 {
		return func(context.Context, DependencyResolver) (reflect.Value, error) {
			return call(nil)
		}
	}

	return func(ctx context.Context, r DependencyResolver) (reflect.Value, error) {
		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			v, err := arg(ctx, r)
			if err != nil {
				return reflect.Value{}, err
			}
			in[i] = v
		}
		return call(in)
	}
}

// CompileAllocation returns an Invoker that allocates the zero value of t.
// Pointer-to-struct types get a fresh allocation; struct types are returned by value.
func CompileAllocation(t reflect.Type) (Invoker, error) {
	switch {
	case t == nil:
		return nil, ErrNotAllocatable
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		elem := t.Elem()
		return func(context.Context, DependencyResolver) (reflect.Value, error) {
			return reflect.New(elem), nil
		}, nil
	case t.Kind() == reflect.Struct:
		return func(context.Context, DependencyResolver) (reflect.Value, error) {
			return reflect.New(t).Elem(), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotAllocatable, t)
	}
}

func (b *Binding) compile() argFunc {
	t, target, key := b.Type, b.Target, b.Key

	switch b.Kind {
	case KindContext:
		return func(ctx context.Context, _ DependencyResolver) (reflect.Value, error) {
			if ctx == nil {
				ctx = context.Background()
			}
			return reflect.ValueOf(&ctx).Elem(), nil
		}

	case KindDefault:
		def := b.Default
		return func(ctx context.Context, r DependencyResolver) (reflect.Value, error) {
			v, found, err := r.TryResolve(ctx, target, key)
			if err != nil {
				return reflect.Value{}, err
			}
			if !found {
				if def.IsValid() {
					return def, nil
				}
				return reflect.Zero(t), nil
			}
			return ValueOf(v, t)
		}

	case KindSlice:
		return func(ctx context.Context, r DependencyResolver) (reflect.Value, error) {
			items, err := r.ResolveMany(ctx, target, key)
			if err != nil {
				return reflect.Value{}, err
			}
			slice := reflect.MakeSlice(t, len(items), len(items))
			for i, item := range items {
				v, err := ValueOf(item, target)
				if err != nil {
					return reflect.Value{}, err
				}
				slice.Index(i).Set(v)
			}
			return slice, nil
		}

	case KindSeq:
		return func(ctx context.Context, r DependencyResolver) (reflect.Value, error) {
			return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
				yield := in[0]
				err := r.Each(ctx, target, key, func(item any) bool {
					v, err := ValueOf(item, target)
					if err != nil {
						panic(err)
					}
					return yield.Call([]reflect.Value{v})[0].Bool()
				})
				if err != nil {
					panic(err)
				}
				return nil
			}), nil
		}

	case KindSeq2:
		zero := reflect.Zero(target)
		nilErr := reflect.Zero(errType)
		return func(ctx context.Context, r DependencyResolver) (reflect.Value, error) {
			return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
				yield := in[0]
				stopped := false
				err := r.Each(ctx, target, key, func(item any) bool {
					v, err := ValueOf(item, target)
					if err != nil {
						stopped = !yield.Call([]reflect.Value{zero, errorValue(err)})[0].Bool()
						return !stopped
					}
					stopped = !yield.Call([]reflect.Value{v, nilErr})[0].Bool()
					return !stopped
				})
				if err != nil && !stopped {
					yield.Call([]reflect.Value{zero, errorValue(err)})
				}
				return nil
			}), nil
		}

	case KindLazy:
		elem := t.Elem()
		return func(ctx context.Context, r DependencyResolver) (reflect.Value, error) {
			lazy := reflect.New(elem)
			lazy.Interface().(lazyBinder).bind(func() (any, error) {
				return r.Resolve(ctx, target, key)
			})
			return lazy, nil
		}

	case KindFunc:
		takesCtx, returnsErr := b.FuncTakesContext, b.FuncReturnsError
		nilErr := reflect.Zero(errType)
		return func(ctx context.Context, r DependencyResolver) (reflect.Value, error) {
			return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
				callCtx := ctx
				if takesCtx {
					if c, ok := in[0].Interface().(context.Context); ok && c != nil {
						callCtx = c
					}
				}

				item, err := r.Resolve(callCtx, target, key)
				var v reflect.Value
				if err == nil {
					v, err = ValueOf(item, target)
				}

				if returnsErr {
					if err != nil {
						return []reflect.Value{reflect.Zero(target), errorValue(err)}
					}
					return []reflect.Value{v, nilErr}
				}
				if err != nil {
					panic(err)
				}
				return []reflect.Value{v}
			}), nil
		}

	default:
		return func(ctx context.Context, r DependencyResolver) (reflect.Value, error) {
			v, err := r.Resolve(ctx, target, key)
			if err != nil {
				return reflect.Value{}, err
			}
			return ValueOf(v, t)
		}
	}
}

// ValueOf converts a resolved instance into a value assignable to t.
// A nil instance becomes the zero value of t.
func ValueOf(instance any, t reflect.Type) (reflect.Value, error) {
	if instance == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(instance)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", ErrTypeMismatch, v.Type(), t)
}

func errorValue(err error) reflect.Value {
	return reflect.ValueOf(&err).Elem()
}
