package ioc

import (
	"reflect"
)

// Implementation describes how to build a concrete type when more than one
// constructor is available. Exactly one candidate is used: the one wrapped
// with Inject if any, otherwise the one with the most parameters, ties going
// to the earliest.
//
// An Implementation without candidates allocates Type, which must be a struct
// or a pointer to a struct.
//
// Example:
//
//	impl := ioc.ImplementationOf[*SMTPMailer](
//	    NewSMTPMailer,                    // func(Config) *SMTPMailer
//	    ioc.Inject(NewSMTPMailerFromEnv), // func() *SMTPMailer, selected
//	)
type Implementation struct {
	// Type is the implementation type. When empty it is taken from the
	// selected constructor.
	Type reflect.Type

	Candidates []any
}

// Constructors returns an Implementation choosing among ctors.
func Constructors(ctors ...any) Implementation {
	return Implementation{Candidates: ctors}
}

// ImplementationOf returns an Implementation of T choosing among ctors.
func ImplementationOf[T any](ctors ...any) Implementation {
	return Implementation{Type: reflect.TypeFor[T](), Candidates: ctors}
}

// injected marks the constructor selected for injection.
type injected struct {
	ctor any
}

// Inject marks ctor as the constructor to use among an Implementation's candidates.
func Inject(ctor any) any {
	return injected{ctor: ctor}
}
