// Package fiber provides ioc integration for the Fiber web framework.
//
// Fiber does not carry a context.Context on its request, so ScopeMiddleware
// attaches the scope and container to the UserContext and also keeps the
// scope in fiber.Ctx.Locals.
//
// Example usage:
//
//	c := ioc.New()
//	// register controllers...
//
//	app := fiber.New()
//	app.Use(iocfiber.ScopeMiddleware(c))
//
//	app.Post("/login", iocfiber.Handle((*AuthController).Login))
//	app.Get("/users/:id", iocfiber.Handle((*UserController).GetByID))
package fiber

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/junioryono/ioc"
)

// scopeKey is the key used to store the scope in fiber.Ctx.Locals
const scopeKey = "ioc_scope"

// ErrNoContainer is reported when the request did not pass through
// ScopeMiddleware.
var ErrNoContainer = errors.New("no container in request context")

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when the scope cannot begin or a middleware
	// fails. If nil, a 500 JSON response is written.
	ErrorHandler func(*fiber.Ctx, error) error

	// FinishErrorHandler is called when finishing the scope fails.
	// If nil, errors are logged using slog.
	FinishErrorHandler func(error)

	// Middlewares are functions that run after the scope begins.
	Middlewares []func(*ioc.Scope, *fiber.Ctx) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for scope and middleware failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithFinishErrorHandler sets the error handler for scope finish failures.
func WithFinishErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.FinishErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the scope begins.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*ioc.Scope, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
		FinishErrorHandler: func(err error) {
			slog.Error("failed to finish scope", "error", err)
		},
	}
}

// ScopeMiddleware creates a Fiber middleware that begins a scope for each
// request. The scope is stored in fiber.Ctx.Locals and, together with the
// container, attached to the UserContext.
//
// The scope is finished after the rest of the chain has run.
func ScopeMiddleware(container *ioc.Container, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		if container == nil || container.IsClosed() {
			return cfg.ErrorHandler(c, ioc.ErrContainerClosed)
		}

		ctx, scope := container.BeginScope(ioc.WithContainer(c.UserContext(), container))
		defer func() {
			c.Locals(scopeKey, nil)
			if err := scope.Finish(ctx); err != nil {
				cfg.FinishErrorHandler(err)
			}
		}()

		c.SetUserContext(ctx)
		c.Locals(scopeKey, scope)

		for _, mw := range cfg.Middlewares {
			if err := mw(scope, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// ScopeErrorHandler is called when the request carries no container.
	ScopeErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(*fiber.Ctx, error) error
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for a missing container.
func WithScopeErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	internal := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}
	return &HandlerConfig{
		PanicHandler: func(c *fiber.Ctx, v any) error {
			slog.Error("panic in handler", "panic", v, "path", c.Path())
			return internal(c)
		},
		ScopeErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to get container from context", "error", err)
			return internal(c)
		},
		ResolutionErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return internal(c)
		},
	}
}

// Handle wraps a controller method for type-safe resolution within the
// request's scope.
//
// The method signature should be: func(T, *fiber.Ctx) error
//
// Example:
//
//	app.Get("/users/:id", iocfiber.Handle((*UserController).GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		if _, ok := ioc.ContainerFromContext(c.UserContext()); !ok {
			return cfg.ScopeErrorHandler(c, ErrNoContainer)
		}

		controller, resolveErr := Resolve[T](c)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}

// Resolve resolves T from the container attached to c within the request's
// scope.
func Resolve[T any](c *fiber.Ctx, opts ...ioc.ResolveOption) (T, error) {
	ctx := c.UserContext()
	container, ok := ioc.ContainerFromContext(ctx)
	if !ok {
		var zero T
		return zero, ErrNoContainer
	}
	return ioc.Resolve[T](ctx, container, opts...)
}

// FromContext retrieves the scope from fiber.Ctx.Locals, or nil when the
// request did not pass through ScopeMiddleware.
//
// Example:
//
//	scope := iocfiber.FromContext(c)
//	_ = scope.DisposeOnFinish(c.UserContext(), conn)
func FromContext(c *fiber.Ctx) *ioc.Scope {
	scope, _ := c.Locals(scopeKey).(*ioc.Scope)
	return scope
}
