package ioc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/junioryono/ioc/internal/reflection"
)

// analyzer is shared by every container; a signature depends only on the
// constructor's type.
var analyzer = reflection.New()

// blueprint is a compiled implementation: everything needed to build one
// instance without further reflection on the constructor.
type blueprint struct {
	implType reflect.Type
	invoke   reflection.Invoker
	deps     []Dependency
}

// Dependency describes one injected parameter of a constructor.
type Dependency struct {
	Type reflect.Type
	Key  any

	// Many is set for []T and iter.Seq[T] parameters.
	Many bool

	// Optional is set for parameter object fields with a declared default.
	Optional bool

	// Deferred is set when nothing is resolved until after construction:
	// *Lazy[T], func() T and iterator parameters.
	Deferred bool
}

func dependenciesOf(sig *reflection.Signature) []Dependency {
	var deps []Dependency
	for _, b := range sig.Bindings {
		if b.Kind == reflection.KindContext {
			continue
		}
		deps = append(deps, Dependency{
			Type:     b.Target,
			Key:      b.Key,
			Many:     b.Kind == reflection.KindSlice || b.Kind == reflection.KindSeq || b.Kind == reflection.KindSeq2,
			Optional: b.Kind == reflection.KindDefault,
			Deferred: b.Kind == reflection.KindLazy || b.Kind == reflection.KindFunc || b.Kind == reflection.KindSeq || b.Kind == reflection.KindSeq2,
		})
	}
	return deps
}

// compile turns an implementation into a blueprint. It accepts a constructor
// function, an Implementation or a reflect.Type to allocate. Problems with
// the implementation are reported here, before anything is registered.
func compile(impl any) (*blueprint, error) {
	switch v := impl.(type) {
	case nil:
		return nil, ErrConstructorNil
	case injected:
		return compile(v.ctor)
	case Implementation:
		return compileImplementation(v)
	case *Implementation:
		if v == nil {
			return nil, ErrConstructorNil
		}
		return compileImplementation(*v)
	case reflect.Type:
		return compileAllocation(v)
	}

	fn := reflect.ValueOf(impl)
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidImplementation, impl)
	}
	if fn.IsNil() {
		return nil, ErrConstructorNil
	}

	sig, err := analyzer.Analyze(fn.Type())
	if err != nil {
		return nil, err
	}

	return &blueprint{implType: sig.Out, invoke: sig.Compile(fn), deps: dependenciesOf(sig)}, nil
}

func compileAllocation(t reflect.Type) (*blueprint, error) {
	invoke, err := reflection.CompileAllocation(t)
	if err != nil {
		if t == nil {
			return nil, ErrNoConstructor
		}
		return nil, fmt.Errorf("%w: %s is neither a struct nor a pointer to a struct", ErrNoConstructor, t)
	}
	return &blueprint{implType: t, invoke: invoke}, nil
}

func compileImplementation(impl Implementation) (*blueprint, error) {
	var (
		best       *reflection.Signature
		bestFn     reflect.Value
		bestMarked bool
	)

	for i, raw := range impl.Candidates {
		marked := false
		if m, ok := raw.(injected); ok {
			raw, marked = m.ctor, true
		}

		fn := reflect.ValueOf(raw)
		if !fn.IsValid() || (fn.Kind() == reflect.Func && fn.IsNil()) {
			return nil, fmt.Errorf("candidate %d: %w", i, ErrConstructorNil)
		}
		if fn.Kind() != reflect.Func {
			return nil, fmt.Errorf("candidate %d: %w: got %T", i, ErrInvalidImplementation, raw)
		}

		sig, err := analyzer.Analyze(fn.Type())
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}

		if impl.Type != nil && !sig.Out.AssignableTo(impl.Type) {
			return nil, TypeMismatchError{Expected: impl.Type, Actual: sig.Out, Context: "constructor candidate"}
		}

		switch {
		case bestMarked:
		case marked:
			best, bestFn, bestMarked = sig, fn, true
		case best == nil || sig.NumParams() > best.NumParams():
			best, bestFn = sig, fn
		}
	}

	if best == nil {
		if impl.Type == nil {
			return nil, ErrNoConstructor
		}
		return compileAllocation(impl.Type)
	}

	implType := impl.Type
	if implType == nil {
		implType = best.Out
	}

	return &blueprint{implType: implType, invoke: best.Compile(bestFn), deps: dependenciesOf(best)}, nil
}

// build runs the blueprint once. Panics are recovered, and constructor
// failures are wrapped with the implementation type.
func (b *blueprint) build(ctx context.Context, r reflection.DependencyResolver) (instance any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = ConstructorPanicError{
				Implementation: b.implType,
				Panic:          p,
				Stack:          debug.Stack(),
			}
		}
	}()

	v, err := b.invoke(ctx, r)
	if err != nil {
		var cycle CircularDependencyError
		if errors.As(err, &cycle) {
			return nil, err
		}
		return nil, ConstructorInvocationError{Implementation: b.implType, Cause: err}
	}

	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}
