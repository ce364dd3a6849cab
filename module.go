package ioc

import (
	"reflect"
)

// ModuleOption represents a registration action within a module.
type ModuleOption func(Registrator) error

// NewModule creates a new module with the given name and builders.
// Modules are a way to group related service registrations together, such
// as everything one plugin contributes.
//
// Example:
//
//	var StorageModule = ioc.NewModule("storage",
//	    ioc.AddSingleton(NewConnectionPool),
//	    ioc.Provide[UserRepository](NewUserRepository, ioc.Scoped),
//	)
//
//	var AppModule = ioc.NewModule("app",
//	    StorageModule,
//	    ioc.AddTransient(NewRequestLogger),
//	)
//
//	if err := c.AddModules(AppModule); err != nil {
//	    log.Fatal(err)
//	}
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(r Registrator) error {
		// Execute all builders in order
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(r); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// AddModules applies one or more modules to the container.
func (c *Container) AddModules(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}
		if err := module(c); err != nil {
			return err
		}
	}
	return nil
}

// AddSingleton creates a ModuleOption registering a singleton under its own
// implementation type.
func AddSingleton(implementation any, opts ...RegisterOption) ModuleOption {
	return add(implementation, Singleton, opts)
}

// AddScoped creates a ModuleOption registering a scoped service under its own
// implementation type.
func AddScoped(implementation any, opts ...RegisterOption) ModuleOption {
	return add(implementation, Scoped, opts)
}

// AddTransient creates a ModuleOption registering a transient service under
// its own implementation type.
func AddTransient(implementation any, opts ...RegisterOption) ModuleOption {
	return add(implementation, Transient, opts)
}

func add(implementation any, reuse Reuse, opts []RegisterOption) ModuleOption {
	opts = append(opts[:len(opts):len(opts)], NonPublic())
	return func(r Registrator) error {
		return r.RegisterMany(nil, implementation, reuse, opts...)
	}
}

// Provide creates a ModuleOption registering implementation under T.
func Provide[T any](implementation any, reuse Reuse, opts ...RegisterOption) ModuleOption {
	return func(r Registrator) error {
		return Register[T](r, implementation, reuse, opts...)
	}
}

// ProvideMany creates a ModuleOption registering implementation under every
// given service type with a single shared factory.
func ProvideMany(serviceTypes []reflect.Type, implementation any, reuse Reuse, opts ...RegisterOption) ModuleOption {
	return func(r Registrator) error {
		return r.RegisterMany(serviceTypes, implementation, reuse, opts...)
	}
}

// AddInstance creates a ModuleOption registering an existing value as T.
func AddInstance[T any](instance T, opts ...RegisterOption) ModuleOption {
	return func(r Registrator) error {
		return RegisterInstance[T](r, instance, opts...)
	}
}

// AddOpen creates a ModuleOption registering an open generic service type.
func AddOpen(open OpenType, closer Closer, reuse Reuse, opts ...RegisterOption) ModuleOption {
	return func(r Registrator) error {
		return r.RegisterOpen(open, closer, reuse, opts...)
	}
}

// AddDeclared creates a ModuleOption registering declared candidates.
func AddDeclared(candidates ...any) ModuleOption {
	return func(r Registrator) error {
		return r.RegisterDeclared(candidates...)
	}
}
