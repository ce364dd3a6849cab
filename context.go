package ioc

import "context"

// containerContextKey is the key for storing a container in context.
type containerContextKey struct{}

// WithContainer returns a context carrying c. Request middleware uses it so
// handlers further down the chain can resolve without holding the container.
func WithContainer(ctx context.Context, c *Container) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, containerContextKey{}, c)
}

// ContainerFromContext returns the container carried by ctx.
func ContainerFromContext(ctx context.Context) (*Container, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(containerContextKey{}).(*Container)
	return c, ok && c != nil
}
