package ioc

import (
	"log/slog"
	"reflect"
)

// Option configures a Container created by New.
type Option interface {
	applyContainer(*containerOptions)
}

// containerOptions holds container configuration.
type containerOptions struct {
	logger *slog.Logger
}

// optionFunc adapts a function to Option.
type optionFunc func(*containerOptions)

func (f optionFunc) applyContainer(opts *containerOptions) {
	f(opts)
}

// WithLogger sets the logger used for registration and disposal records.
// The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(opts *containerOptions) {
		if logger != nil {
			opts.logger = logger
		}
	})
}

// RegisterOption configures service registration.
type RegisterOption interface {
	applyRegister(*registerOptions)
}

// registerOptions holds registration configuration.
type registerOptions struct {
	key       any
	nonPublic bool
	except    []reflect.Type
}

// registerOptionFunc adapts a function to RegisterOption.
type registerOptionFunc func(*registerOptions)

func (f registerOptionFunc) applyRegister(opts *registerOptions) {
	f(opts)
}

// NonPublic allows unexported service types when RegisterMany derives the
// service type from the implementation, and in RegisterDeclared records.
// They are skipped otherwise. Types listed to RegisterMany are always kept.
func NonPublic() RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.nonPublic = true
	})
}

// Except removes service types from the set RegisterMany registers under.
func Except(types ...reflect.Type) RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.except = append(opts.except, types...)
	})
}

// ResolveOption configures service resolution.
type ResolveOption interface {
	applyResolve(*resolveOptions)
}

// resolveOptions holds resolution configuration.
type resolveOptions struct {
	key          any
	ifUnresolved IfUnresolved
}

// resolveOptionFunc adapts a function to ResolveOption.
type resolveOptionFunc func(*resolveOptions)

func (f resolveOptionFunc) applyResolve(opts *resolveOptions) {
	f(opts)
}

// OrDefault makes a single-item resolve return the zero value of the
// requested type instead of an error when it does not find exactly one
// registration.
func OrDefault() ResolveOption {
	return WithIfUnresolved(ReturnDefault)
}

// WithIfUnresolved sets the unresolved policy of a single-item resolve.
func WithIfUnresolved(policy IfUnresolved) ResolveOption {
	return resolveOptionFunc(func(opts *resolveOptions) {
		opts.ifUnresolved = policy
	})
}

// KeyOption selects a contract key. It is accepted both when registering
// and when resolving.
type KeyOption struct {
	key any
}

// Keyed partitions registrations of one service type into named contracts.
// The key must be comparable. A nil key is the default contract.
//
// Example:
//
//	c.Register(reflect.TypeFor[Cache](), NewRedisCache, ioc.Singleton, ioc.Keyed("redis"))
//	cache, err := ioc.Resolve[Cache](ctx, c, ioc.Keyed("redis"))
func Keyed(key any) KeyOption {
	return KeyOption{key: key}
}

func (o KeyOption) applyRegister(opts *registerOptions) {
	opts.key = o.key
}

func (o KeyOption) applyResolve(opts *resolveOptions) {
	opts.key = o.key
}

func buildRegisterOptions(opts []RegisterOption) registerOptions {
	var ro registerOptions
	for _, opt := range opts {
		if opt != nil {
			opt.applyRegister(&ro)
		}
	}
	return ro
}

func buildResolveOptions(opts []ResolveOption) resolveOptions {
	var ro resolveOptions
	for _, opt := range opts {
		if opt != nil {
			opt.applyResolve(&ro)
		}
	}
	return ro
}
