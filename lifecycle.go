package ioc

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// lifecycleManager manages the lifecycle of disposable instances
type lifecycleManager struct {
	disposables []any
	seen        map[any]struct{}
	mu          sync.Mutex
}

// newLifecycleManager creates a new lifecycle manager
func newLifecycleManager() *lifecycleManager {
	return &lifecycleManager{}
}

// track adds a disposable instance to be managed. Pointer-shaped instances
// are tracked once no matter how often they are added.
func (m *lifecycleManager) track(instance any) bool {
	if !isDisposable(instance) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if reflect.TypeOf(instance).Kind() == reflect.Pointer {
		if _, dup := m.seen[instance]; dup {
			return true
		}
		if m.seen == nil {
			m.seen = make(map[any]struct{})
		}
		m.seen[instance] = struct{}{}
	}

	m.disposables = append(m.disposables, instance)
	return true
}

// untrack stops managing instance without closing it.
func (m *lifecycleManager) untrack(instance any) {
	if instance == nil || !reflect.TypeOf(instance).Comparable() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.disposables = slices.DeleteFunc(m.disposables, func(d any) bool { return d == instance })
	delete(m.seen, instance)
}

func (m *lifecycleManager) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.disposables)
}

// dispose disposes all tracked instances in reverse order
func (m *lifecycleManager) dispose(ctx context.Context) []error {
	m.mu.Lock()
	disposables := m.disposables
	m.disposables = nil
	m.seen = nil
	m.mu.Unlock()

	var errs []error

	// Dispose in reverse order (LIFO)
	for i := len(disposables) - 1; i >= 0; i-- {
		if err := closeInstance(ctx, disposables[i]); err != nil {
			errs = append(errs, fmt.Errorf("closing %T: %w", disposables[i], err))
		}
	}

	return errs
}

func closeInstance(ctx context.Context, instance any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during close: %v", r)
		}
	}()

	switch d := instance.(type) {
	case DisposableWithContext:
		return d.Close(ctx)
	case Disposable:
		return d.Close()
	}
	return nil
}
