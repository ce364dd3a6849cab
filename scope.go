package ioc

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Scope is one logical unit of work, such as an inbound request, across
// which scoped instances are shared. A scope travels in a context.Context:
// every resolution made with that context, including from goroutines it is
// handed to, sees the same scoped instances. Unrelated contexts do not.
//
// Finishing a scope closes its disposable instances exactly once and starts
// over with an empty set, so a long-lived scope can be reused.
//
// Example:
//
//	ctx, scope := c.BeginScope(r.Context())
//	defer scope.Finish(ctx)
//
//	svc, err := ioc.Resolve[*RequestService](ctx, c)
type Scope struct {
	id     string
	logger *slog.Logger
	state  atomic.Pointer[scopeState]

	refMu sync.Mutex
	refs  int
}

// scopeState is the slot set of one generation of a scope.
type scopeState struct {
	slots     sync.Map // scopeSlotKey -> *slot
	lifecycle *lifecycleManager

	mu       sync.Mutex
	finished bool
}

type scopeSlotKey struct {
	factory *Factory
	args    string
}

// scopeContextKey is the key for storing the current scope in context.
type scopeContextKey struct{}

func newScope(logger *slog.Logger) *Scope {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scope{
		id:     uuid.NewString(),
		logger: logger,
		refs:   1,
	}
	s.state.Store(newScopeState())
	return s
}

func newScopeState() *scopeState {
	return &scopeState{lifecycle: newLifecycleManager()}
}

// BeginScope starts a new logical scope and returns a context carrying it.
// The caller holds one reference; see Retain and Release.
func BeginScope(ctx context.Context) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := newScope(nil)
	return WithScope(ctx, s), s
}

// WithScope returns a context carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext gets the current scope from context.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok && s != nil
}

// ID returns the unique ID of this scope.
func (s *Scope) ID() string {
	return s.id
}

func (s *Scope) current() *scopeState {
	return s.state.Load()
}

// Len returns the number of scoped instances constructed in the current
// generation of the scope.
func (s *Scope) Len() int {
	n := 0
	s.current().slots.Range(func(_, v any) bool {
		if _, ok := v.(*slot).load(); ok {
			n++
		}
		return true
	})
	return n
}

// DisposeOnFinish registers d to be closed when the scope finishes.
// d must implement Disposable or DisposableWithContext. Registering the same
// pointer twice closes it once.
func (s *Scope) DisposeOnFinish(ctx context.Context, d any) error {
	if !isDisposable(d) {
		return ErrNotDisposable
	}
	s.current().track(ctx, d)
	return nil
}

// Finish closes every disposable instance of the current generation in
// reverse order of construction and starts a new, empty generation.
// Finishing again closes nothing twice.
func (s *Scope) Finish(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	old := s.state.Swap(newScopeState())

	old.mu.Lock()
	if old.finished {
		old.mu.Unlock()
		return nil
	}
	old.finished = true
	old.mu.Unlock()

	if errs := old.lifecycle.dispose(ctx); len(errs) > 0 {
		return DisposalError{Context: "scope", Errors: errs}
	}
	return nil
}

// Retain adds a reference to the scope, typically before handing its
// context to background work that may outlive the caller.
func (s *Scope) Retain() *Scope {
	s.refMu.Lock()
	s.refs++
	s.refMu.Unlock()
	return s
}

// Release drops a reference. The last release finishes the scope.
// Releasing more often than retaining is clamped at zero, logged and
// reported with ErrScopeOverReleased.
func (s *Scope) Release(ctx context.Context) error {
	s.refMu.Lock()
	if s.refs <= 0 {
		s.refs = 0
		s.refMu.Unlock()
		s.logger.Warn("scope released more times than retained", "scope", s.id)
		return ErrScopeOverReleased
	}
	s.refs--
	last := s.refs == 0
	s.refMu.Unlock()

	if last {
		return s.Finish(ctx)
	}
	return nil
}

// References returns the current reference count.
func (s *Scope) References() int {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	return s.refs
}

func (st *scopeState) slot(f *Factory, args string) *slot {
	key := scopeSlotKey{factory: f, args: args}
	if v, ok := st.slots.Load(key); ok {
		return v.(*slot)
	}
	v, _ := st.slots.LoadOrStore(key, new(slot))
	return v.(*slot)
}

// track adds a disposable to the generation. A generation that already
// finished closes it right away, since nobody will drain it again.
func (st *scopeState) track(ctx context.Context, instance any) {
	st.mu.Lock()
	if !st.finished {
		st.lifecycle.track(instance)
		st.mu.Unlock()
		return
	}
	st.mu.Unlock()

	if isDisposable(instance) {
		_ = closeInstance(ctx, instance)
	}
}
