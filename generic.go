package ioc

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/ioc/internal/reflection"
)

// OpenType identifies a generic type without its type arguments, such as
// Box[T] for every T. Pointers counts the pointer indirections, so Box[T] and
// *Box[T] are different open types.
//
// Go cannot name an uninstantiated generic type, so an OpenType is derived
// from any one of its instantiations:
//
//	open := ioc.OpenTypeOf[*Box[any]]()
type OpenType struct {
	PkgPath  string
	Name     string
	Pointers int
}

// OpenTypeOf returns the open type of the instantiated generic type T.
// The result is the zero OpenType when T is not generic.
func OpenTypeOf[T any]() OpenType {
	open, _ := OpenTypeFor(reflect.TypeFor[T]())
	return open
}

// OpenTypeFor returns the open type t was instantiated from.
func OpenTypeFor(t reflect.Type) (OpenType, bool) {
	open, _, ok := openTypeOf(t)
	return open, ok
}

// TypeArguments returns the canonical key of t's type arguments: their full
// names joined by commas. It is empty for non-generic types.
func TypeArguments(t reflect.Type) string {
	_, args, _ := openTypeOf(t)
	return args
}

func openTypeOf(t reflect.Type) (OpenType, string, bool) {
	origin, args, ok := reflection.OriginOf(t)
	if !ok {
		return OpenType{}, "", false
	}
	return OpenType(origin), args, true
}

// IsValid reports whether o names a generic type.
func (o OpenType) IsValid() bool {
	return o.Name != ""
}

// Matches reports whether t is an instantiation of o.
func (o OpenType) Matches(t reflect.Type) bool {
	open, _, ok := openTypeOf(t)
	return ok && open == o
}

func (o OpenType) String() string {
	if !o.IsValid() {
		return "<invalid open type>"
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("*", o.Pointers))
	if o.PkgPath != "" {
		b.WriteString(o.PkgPath[strings.LastIndexByte(o.PkgPath, '/')+1:])
		b.WriteByte('.')
	}
	b.WriteString(o.Name)
	b.WriteString("[...]")
	return b.String()
}

// Closer produces the implementation for one closed instantiation of an open
// service type. It returns anything Register accepts: a constructor function,
// an Implementation or a reflect.Type. The result is built once per closed
// service type and cached.
type Closer func(serviceType reflect.Type) (any, error)

// Instantiations returns a Closer that picks, among pre-instantiated generic
// constructors, the one whose result has the requested type arguments.
//
// Example:
//
//	c.RegisterOpen(ioc.OpenTypeOf[Repository[any]](), ioc.Instantiations(
//	    NewRepository[User],
//	    NewRepository[Order],
//	), ioc.Singleton)
func Instantiations(ctors ...any) Closer {
	byArgs := make(map[string]any, len(ctors))
	var invalid error

	for _, ctor := range ctors {
		fnType := reflect.TypeOf(ctor)
		if fnType == nil || fnType.Kind() != reflect.Func || fnType.NumOut() == 0 {
			invalid = fmt.Errorf("%w: %T", ErrInvalidImplementation, ctor)
			continue
		}
		args := TypeArguments(fnType.Out(0))
		if _, dup := byArgs[args]; !dup {
			byArgs[args] = ctor
		}
	}

	return func(serviceType reflect.Type) (any, error) {
		if invalid != nil {
			return nil, invalid
		}
		ctor, ok := byArgs[TypeArguments(serviceType)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoInstantiation, serviceType)
		}
		return ctor, nil
	}
}

// Allocate is a Closer that allocates the zero value of the requested type.
// It serves open types whose instantiations are structs or pointers to structs.
func Allocate(serviceType reflect.Type) (any, error) {
	return serviceType, nil
}
