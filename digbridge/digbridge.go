// Package digbridge connects an ioc.Container with a go.uber.org/dig
// container, so services built by one can be injected by the other.
//
// ImportFromDig makes values provided to dig resolvable from the container:
//
//	dc := dig.New()
//	_ = dc.Provide(NewConfig)
//
//	c := ioc.New()
//	err := digbridge.ImportFromDig(c, dc, digbridge.Binding{Type: reflect.TypeFor[*Config]()})
//
// ExportToDig goes the other way and provides container services to dig.
// dig caches every provided value, so an exported service is built at most
// once per dig container whatever its reuse policy.
package digbridge

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/junioryono/ioc"
	"go.uber.org/dig"
)

var (
	errorType = reflect.TypeFor[error]()
	digInType = reflect.TypeFor[dig.In]()
)

// ErrTypeNil is returned for a Binding without a Type.
var ErrTypeNil = errors.New("digbridge: binding type cannot be nil")

// Binding names one service shared between the two containers.
type Binding struct {
	Type reflect.Type

	// Name is the dig value name. When set it is also the ioc contract key.
	Name string

	// Reuse applies to imported services. dig already shares its values, so
	// Transient only means the delegate asks dig again on every resolve.
	Reuse ioc.Reuse
}

func (b Binding) resolveOptions() []ioc.ResolveOption {
	if b.Name == "" {
		return nil
	}
	return []ioc.ResolveOption{ioc.Keyed(b.Name)}
}

func (b Binding) registerOptions() []ioc.RegisterOption {
	if b.Name == "" {
		return nil
	}
	return []ioc.RegisterOption{ioc.Keyed(b.Name)}
}

// ImportFromDig registers a delegate for every binding that resolves the
// value from dc.
func ImportFromDig(c *ioc.Container, dc *dig.Container, bindings ...Binding) error {
	for _, b := range bindings {
		if b.Type == nil {
			return ErrTypeNil
		}

		extract := digExtractor(b)
		err := c.RegisterDelegate(b.Type, func(context.Context, ioc.Resolver) (any, error) {
			return extract(dc)
		}, b.Reuse, b.registerOptions()...)
		if err != nil {
			return fmt.Errorf("import %s from dig: %w", b.Type, err)
		}
	}
	return nil
}

// digExtractor builds, once, an invoke function asking dig for one value.
func digExtractor(b Binding) func(*dig.Container) (any, error) {
	param := b.Type
	if b.Name != "" {
		param = reflect.StructOf([]reflect.StructField{
			{Name: "In", Type: digInType, Anonymous: true},
			{Name: "Value", Type: b.Type, Tag: reflect.StructTag(fmt.Sprintf(`name:%q`, b.Name))},
		})
	}
	fnType := reflect.FuncOf([]reflect.Type{param}, []reflect.Type{errorType}, false)

	return func(dc *dig.Container) (any, error) {
		var got reflect.Value
		fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
			got = args[0]
			if b.Name != "" {
				got = got.Field(1)
			}
			return []reflect.Value{reflect.Zero(errorType)}
		})

		if err := dc.Invoke(fn.Interface()); err != nil {
			return nil, fmt.Errorf("dig: %w", dig.RootCause(err))
		}
		return got.Interface(), nil
	}
}

// ExportToDig provides every binding to dc. The service is resolved from c
// with ctx, the first time dig needs it. Binding.Reuse is ignored.
func ExportToDig(ctx context.Context, dc *dig.Container, c *ioc.Container, bindings ...Binding) error {
	for _, b := range bindings {
		if b.Type == nil {
			return ErrTypeNil
		}

		var opts []dig.ProvideOption
		if b.Name != "" {
			opts = append(opts, dig.Name(b.Name))
		}

		if err := dc.Provide(containerProvider(ctx, c, b), opts...); err != nil {
			return fmt.Errorf("export %s to dig: %w", b.Type, err)
		}
	}
	return nil
}

func containerProvider(ctx context.Context, c *ioc.Container, b Binding) any {
	fnType := reflect.FuncOf(nil, []reflect.Type{b.Type, errorType}, false)
	resolveOpts := b.resolveOptions()

	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		v, err := c.Resolve(ctx, b.Type, resolveOpts...)
		if err != nil {
			return []reflect.Value{reflect.Zero(b.Type), reflect.ValueOf(&err).Elem()}
		}

		out := reflect.New(b.Type).Elem()
		if v != nil {
			out.Set(reflect.ValueOf(v))
		}
		return []reflect.Value{out, reflect.Zero(errorType)}
	}).Interface()
}
