package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/junioryono/ioc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertServiceResolvable checks if a service can be resolved
func AssertServiceResolvable[T any](t *testing.T, ctx context.Context, r ioc.Resolver, opts ...ioc.ResolveOption) T {
	t.Helper()
	service, err := ioc.Resolve[T](ctx, r, opts...)
	require.NoError(t, err, "failed to resolve service of type %T", *new(T))
	require.NotNil(t, service, "resolved service is nil")
	return service
}

// AssertServiceNotFound checks if a service resolution fails with not found error
func AssertServiceNotFound[T any](t *testing.T, ctx context.Context, r ioc.Resolver, opts ...ioc.ResolveOption) {
	t.Helper()
	_, err := ioc.Resolve[T](ctx, r, opts...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ioc.ErrServiceNotFound)

	var resErr ioc.ResolutionError
	assert.True(t, errors.As(err, &resErr), "expected ResolutionError, got %T", err)
}

// AssertSameInstance checks that two resolutions yield the same pointer.
func AssertSameInstance[T any](t *testing.T, ctx context.Context, r ioc.Resolver, opts ...ioc.ResolveOption) T {
	t.Helper()
	first := AssertServiceResolvable[T](t, ctx, r, opts...)
	second := AssertServiceResolvable[T](t, ctx, r, opts...)
	assert.Same(t, any(first), any(second))
	return first
}

// AssertDistinctInstances checks that two resolutions yield different pointers.
func AssertDistinctInstances[T any](t *testing.T, ctx context.Context, r ioc.Resolver, opts ...ioc.ResolveOption) {
	t.Helper()
	first := AssertServiceResolvable[T](t, ctx, r, opts...)
	second := AssertServiceResolvable[T](t, ctx, r, opts...)
	assert.NotSame(t, any(first), any(second))
}

// AssertRegistrationFails checks that err is a RegistrationError wrapping target.
func AssertRegistrationFails(t *testing.T, err error, target error) {
	t.Helper()
	require.Error(t, err)

	var regErr ioc.RegistrationError
	assert.True(t, errors.As(err, &regErr), "expected RegistrationError, got %T: %v", err, err)
	if target != nil {
		assert.ErrorIs(t, err, target)
	}
}
