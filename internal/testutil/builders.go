package testutil

import (
	"reflect"
	"testing"

	"github.com/junioryono/ioc"
	"github.com/stretchr/testify/require"
)

// ContainerBuilder provides a fluent interface for building test containers
type ContainerBuilder struct {
	t         *testing.T
	container *ioc.Container
}

// NewContainerBuilder creates a new ContainerBuilder
func NewContainerBuilder(t *testing.T) *ContainerBuilder {
	return &ContainerBuilder{
		t:         t,
		container: NewContainer(t),
	}
}

// WithTransient registers a transient implementation under serviceType.
func (b *ContainerBuilder) WithTransient(serviceType reflect.Type, impl any, opts ...ioc.RegisterOption) *ContainerBuilder {
	return b.with(serviceType, impl, ioc.Transient, opts)
}

// WithSingleton registers a singleton implementation under serviceType.
func (b *ContainerBuilder) WithSingleton(serviceType reflect.Type, impl any, opts ...ioc.RegisterOption) *ContainerBuilder {
	return b.with(serviceType, impl, ioc.Singleton, opts)
}

// WithScoped registers a scoped implementation under serviceType.
func (b *ContainerBuilder) WithScoped(serviceType reflect.Type, impl any, opts ...ioc.RegisterOption) *ContainerBuilder {
	return b.with(serviceType, impl, ioc.Scoped, opts)
}

// WithInstance registers an existing value under serviceType.
func (b *ContainerBuilder) WithInstance(serviceType reflect.Type, instance any, opts ...ioc.RegisterOption) *ContainerBuilder {
	b.t.Helper()
	require.NoError(b.t, b.container.RegisterInstance(serviceType, instance, opts...))
	return b
}

func (b *ContainerBuilder) with(serviceType reflect.Type, impl any, reuse ioc.Reuse, opts []ioc.RegisterOption) *ContainerBuilder {
	b.t.Helper()
	require.NoError(b.t, b.container.Register(serviceType, impl, reuse, opts...))
	return b
}

// Build returns the configured container.
func (b *ContainerBuilder) Build() *ioc.Container {
	return b.container
}

// serviceTypeOf returns the type pointed to by a nil pointer such as (*T)(nil).
func serviceTypeOf(ptr any) reflect.Type {
	return reflect.TypeOf(ptr).Elem()
}
