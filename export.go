package ioc

import (
	"fmt"
	"reflect"
)

// Export is a declarative registration record. A plugin loader or other type
// discovery mechanism hands records to RegisterDeclared, which performs the
// equivalent RegisterMany calls.
type Export struct {
	// Implementation is anything Register accepts. When an Exporter leaves it
	// nil, the exporter's own type is allocated.
	Implementation any

	// ServiceTypes are the types to register under. When empty, the
	// implementation type itself is used.
	ServiceTypes []reflect.Type

	// Except removes service types from ServiceTypes.
	Except []reflect.Type

	Reuse Reuse

	// Key is the contract key, nil for the default contract.
	Key any

	// ClearExisting unregisters every service type under Key first.
	ClearExisting bool

	// NonPublic keeps unexported service types.
	NonPublic bool
}

// Exporter is implemented by types that declare their own registration.
//
// Example:
//
//	type SMTPMailer struct{}
//
//	func (*SMTPMailer) Export() ioc.Export {
//	    return ioc.Export{
//	        ServiceTypes: []reflect.Type{reflect.TypeFor[Mailer](), reflect.TypeFor[*SMTPMailer]()},
//	        Reuse:        ioc.Singleton,
//	    }
//	}
//
//	c.RegisterDeclared(reflect.TypeFor[*SMTPMailer]())
type Exporter interface {
	Export() Export
}

var exporterType = reflect.TypeFor[Exporter]()

// RegisterDeclared registers every candidate that declares itself. A
// candidate is an Export record, an Exporter value, or a reflect.Type whose
// values implement Exporter. Other candidates are skipped.
func (c *Container) RegisterDeclared(candidates ...any) error {
	for i, candidate := range candidates {
		export, ok := declaredExport(candidate)
		if !ok {
			continue
		}

		if err := c.registerExport(export); err != nil {
			return fmt.Errorf("candidate %d: %w", i, err)
		}
	}
	return nil
}

func declaredExport(candidate any) (Export, bool) {
	switch v := candidate.(type) {
	case Export:
		return v, true
	case *Export:
		if v == nil {
			return Export{}, false
		}
		return *v, true
	case reflect.Type:
		return exportOfType(v)
	case Exporter:
		export := v.Export()
		if export.Implementation == nil {
			export.Implementation = reflect.TypeOf(v)
		}
		return export, true
	}
	return Export{}, false
}

// exportOfType asks a fresh value of t for its Export record.
func exportOfType(t reflect.Type) (Export, bool) {
	if t == nil || !t.Implements(exporterType) {
		return Export{}, false
	}

	var value reflect.Value
	if t.Kind() == reflect.Pointer {
		value = reflect.New(t.Elem())
	} else {
		value = reflect.New(t).Elem()
	}

	export := value.Interface().(Exporter).Export()
	if export.Implementation == nil {
		export.Implementation = t
	}
	return export, true
}

func (c *Container) registerExport(export Export) error {
	opts := []RegisterOption{Keyed(export.Key)}
	if export.NonPublic {
		opts = append(opts, NonPublic())
	}
	if len(export.Except) > 0 {
		opts = append(opts, Except(export.Except...))
	}

	if export.ClearExisting {
		ro := buildRegisterOptions(opts)
		types := export.ServiceTypes
		if len(types) == 0 {
			bp, err := compile(export.Implementation)
			if err != nil {
				return RegistrationError{Operation: "register-declared", Cause: err}
			}
			types = []reflect.Type{bp.implType}
		}
		for _, t := range filterServiceTypes(types, ro, true) {
			c.Unregister(t, Keyed(export.Key))
		}
	}

	return c.registerMany("register-declared", export.ServiceTypes, export.Implementation, export.Reuse, buildRegisterOptions(opts), publicTypes)
}
