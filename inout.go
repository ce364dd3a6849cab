package ioc

import (
	"github.com/junioryono/ioc/internal/reflection"
)

// In marks a parameter object. When a constructor accepts a single struct
// (or pointer to struct) embedding ioc.In, every exported field is injected
// as if it were a separate parameter. Field tags adjust the binding:
//   - `name:"key"` resolves the field under a contract key
//   - `optional:"true"` leaves the zero value when the service is unresolved
//   - `default:"literal"` uses the literal when the service is unresolved
//     (strings, booleans, numbers and time.Duration)
//   - `inject:"-"` skips the field
//
// Example:
//
//	type ServerParams struct {
//	    ioc.In
//
//	    Logger  Logger
//	    Cache   Cache         `name:"redis"`
//	    Metrics Metrics       `optional:"true"`
//	    Timeout time.Duration `default:"30s"`
//	}
//
//	func NewServer(p ServerParams) *Server {
//	    return &Server{logger: p.Logger, cache: p.Cache, timeout: p.Timeout}
//	}
//
// The In struct must be embedded anonymously.
type In = reflection.In

// Lazy defers the resolution of a T until Value is first called. A
// constructor parameter of type *ioc.Lazy[T] is bound without resolving
// anything; the first Value call resolves T with the constructor's context
// and remembers the result.
//
// Example:
//
//	func NewMailer(templates *ioc.Lazy[*TemplateStore]) *Mailer {
//	    return &Mailer{templates: templates}
//	}
//
//	func (m *Mailer) Send(msg Message) error {
//	    store, err := m.templates.Value()
//	    ...
//	}
type Lazy[T any] = reflection.Lazy[T]

// NewLazy returns a Lazy backed by fn, for tests and manual wiring.
func NewLazy[T any](fn func() (T, error)) *Lazy[T] {
	return reflection.NewLazy(fn)
}
