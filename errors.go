package ioc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/ioc/internal/reflection"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that are wrapped in typed errors when returned.
// Match them with errors.Is.

var (
	// Resolution errors.
	ErrServiceNotFound  = errors.New("service not found")
	ErrAmbiguousService = errors.New("more than one service registered")
	ErrServiceTypeNil   = errors.New("service type cannot be nil")

	// Registration errors.
	ErrConstructorNil        = errors.New("constructor cannot be nil")
	ErrNoConstructor         = errors.New("implementation has no usable constructor")
	ErrInvalidImplementation = errors.New("implementation must be a constructor function, an ioc.Implementation or a reflect.Type")
	ErrKeyNotComparable      = errors.New("contract key is not comparable")
	ErrUnsupportedParameter  = reflection.ErrUnsupportedParameter
	ErrNotAssignable         = errors.New("implementation is not assignable to service type")
	ErrOpenTypeInvalid       = errors.New("open type is not a generic type")
	ErrCloserNil             = errors.New("closer cannot be nil")
	ErrNoInstantiation       = errors.New("no instantiation for type arguments")
	ErrNoServiceTypes        = errors.New("no service types left to register under")

	// Lifecycle errors.
	ErrContainerNil      = errors.New("container cannot be nil")
	ErrContainerClosed   = errors.New("container has been closed")
	ErrScopeOverReleased = errors.New("scope released more times than retained")
	ErrNotDisposable     = errors.New("value does not implement Disposable or DisposableWithContext")
	ErrLazyUnbound       = reflection.ErrLazyUnbound
)

var (
	_ error = ReuseError{}
	_ error = ResolutionError{}
	_ error = RegistrationError{}
	_ error = ValidationError{}
	_ error = TypeMismatchError{}
	_ error = ConstructorInvocationError{}
	_ error = ConstructorPanicError{}
	_ error = CircularDependencyError{}
	_ error = DisposalError{}
	_ error = ModuleError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// ReuseError indicates an invalid reuse policy value.
type ReuseError struct {
	Value any
}

func (e ReuseError) Error() string {
	return fmt.Sprintf("invalid reuse policy: %v", e.Value)
}

// ResolutionError reports a single-item resolve that did not find exactly one
// registration, or a failure while constructing the resolved service.
type ResolutionError struct {
	ServiceType reflect.Type
	ServiceKey  any // nil for the default contract

	// Count is the number of matching registrations.
	Count int
	Cause error
}

func (e ResolutionError) Error() string {
	var b strings.Builder

	switch {
	case errors.Is(e.Cause, ErrServiceNotFound):
		b.WriteString("no factory registered for ")
	case errors.Is(e.Cause, ErrAmbiguousService):
		b.WriteString(fmt.Sprintf("%d factories registered for ", e.Count))
	default:
		b.WriteString("failed to resolve ")
	}

	b.WriteString(formatType(e.ServiceType))
	if e.ServiceKey != nil {
		b.WriteString(fmt.Sprintf(" (key: %v)", e.ServiceKey))
	}

	if e.Cause != nil && e.Cause != ErrServiceNotFound && e.Cause != ErrAmbiguousService {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// RegistrationError wraps errors during service registration.
type RegistrationError struct {
	ServiceType reflect.Type
	Operation   string // "register", "register-many", "register-open", "register-declared", ...
	Cause       error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, formatType(e.ServiceType), e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates a malformed registration or lookup argument.
type ValidationError struct {
	ServiceType reflect.Type
	Cause       error
}

func (e ValidationError) Error() string {
	if e.ServiceType != nil {
		return fmt.Sprintf("%s: %v", formatType(e.ServiceType), e.Cause)
	}
	return e.Cause.Error()
}

func (e ValidationError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a type assertion or conversion failed.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "type assertion", "registration", ...
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// ConstructorInvocationError wraps an error returned by a constructor or producer.
type ConstructorInvocationError struct {
	Implementation reflect.Type
	Cause          error
}

func (e ConstructorInvocationError) Error() string {
	return fmt.Sprintf("constructing %s: %v", formatType(e.Implementation), e.Cause)
}

func (e ConstructorInvocationError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor panicked during invocation.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Implementation reflect.Type
	Panic          any
	Stack          []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor of %s panicked: %v\n", formatType(e.Implementation), e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// Unwrap exposes a panic value that is itself an error, such as a failed
// resolution inside an injected func() T.
func (e ConstructorPanicError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// CircularDependencyError reports a service whose construction requires itself.
type CircularDependencyError struct {
	// Path lists the service types under construction, outermost first,
	// ending with the type that was requested again.
	Path []reflect.Type
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for i, t := range e.Path {
		b.WriteString(fmt.Sprintf("    %s", formatType(t)))
		if i == len(e.Path)-1 {
			b.WriteString(" (cycle)")
		}
		b.WriteString("\n")
		if i < len(e.Path)-1 {
			b.WriteString("      ↓\n")
		}
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Inject a *ioc.Lazy[T] or func() T to defer the dependency\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

// DisposalError aggregates disposal errors.
type DisposalError struct {
	Context string // "scope", "container"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
