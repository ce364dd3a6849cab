package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrLazyUnbound is returned by a Lazy that was never bound to a resolver.
var ErrLazyUnbound = errors.New("lazy value is not bound to a container")

type lazyBinder interface {
	lazyTarget() reflect.Type
	bind(resolve func() (any, error))
}

// Lazy defers the resolution of a T until Value is first called. The result,
// including a failure, is remembered.
type Lazy[T any] struct {
	once    sync.Once
	resolve func() (any, error)
	value   T
	err     error
}

// NewLazy returns a Lazy backed by fn.
func NewLazy[T any](fn func() (T, error)) *Lazy[T] {
	l := &Lazy[T]{}
	l.bind(func() (any, error) {
		return fn()
	})
	return l
}

// Value resolves the value on first use and returns it.
func (l *Lazy[T]) Value() (T, error) {
	l.once.Do(func() {
		if l.resolve == nil {
			l.err = ErrLazyUnbound
			return
		}

		v, err := l.resolve()
		if err != nil {
			l.err = err
			return
		}

		if v == nil {
			return
		}

		typed, ok := v.(T)
		if !ok {
			l.err = fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, v, reflect.TypeFor[T]())
			return
		}
		l.value = typed
	})

	return l.value, l.err
}

// MustValue is like Value but panics when the value cannot be resolved.
func (l *Lazy[T]) MustValue() T {
	v, err := l.Value()
	if err != nil {
		panic(err)
	}
	return v
}

func (l *Lazy[T]) lazyTarget() reflect.Type {
	return reflect.TypeFor[T]()
}

func (l *Lazy[T]) bind(resolve func() (any, error)) {
	l.resolve = resolve
}
