// Package echo provides ioc integration for the Echo web framework.
//
// ScopeMiddleware begins a logical scope for each request and finishes it
// when the handler chain returns. Handle resolves a controller within that
// scope.
//
// Example usage:
//
//	c := ioc.New()
//	// register controllers...
//
//	e := echo.New()
//	e.Use(iocecho.ScopeMiddleware(c))
//
//	e.POST("/login", iocecho.Handle((*AuthController).Login))
//	e.GET("/users/:id", iocecho.Handle((*UserController).GetByID))
package echo

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/junioryono/ioc"
	"github.com/labstack/echo/v4"
)

// ScopeKey is the echo.Context key holding the request's *ioc.Scope.
const ScopeKey = "ioc.scope"

// ErrNoContainer is reported by Handle when the request did not pass
// through ScopeMiddleware.
var ErrNoContainer = errors.New("no container in request context")

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when the scope cannot begin or a middleware
	// fails. If nil, an *echo.HTTPError with status 500 is returned.
	ErrorHandler func(echo.Context, error) error

	// FinishErrorHandler is called when finishing the scope fails.
	// If nil, errors are logged using the echo logger.
	FinishErrorHandler func(echo.Context, error)

	// Middlewares are functions that run after the scope begins.
	Middlewares []func(*ioc.Scope, echo.Context) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for scope and middleware failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithFinishErrorHandler sets the error handler for scope finish failures.
func WithFinishErrorHandler(h func(echo.Context, error)) Option {
	return func(c *Config) {
		c.FinishErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the scope begins.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*ioc.Scope, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		FinishErrorHandler: func(c echo.Context, err error) {
			c.Logger().Errorf("failed to finish scope: %v", err)
		},
	}
}

// ScopeMiddleware creates an Echo middleware that begins a scope for each
// request. The scope and container are attached to the request context, and
// the scope is also stored on the echo.Context under ScopeKey.
//
// The scope is finished when the handler chain returns.
func ScopeMiddleware(container *ioc.Container, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if container == nil || container.IsClosed() {
				return cfg.ErrorHandler(c, ioc.ErrContainerClosed)
			}

			ctx, scope := container.BeginScope(ioc.WithContainer(c.Request().Context(), container))
			defer func() {
				if err := scope.Finish(ctx); err != nil {
					cfg.FinishErrorHandler(c, err)
				}
			}()

			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(ScopeKey, scope)

			for _, mw := range cfg.Middlewares {
				if err := mw(scope, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// ScopeFrom returns the scope ScopeMiddleware stored on c.
func ScopeFrom(c echo.Context) (*ioc.Scope, bool) {
	s, ok := c.Get(ScopeKey).(*ioc.Scope)
	return s, ok && s != nil
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ScopeErrorHandler is called when the request carries no container.
	ScopeErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(echo.Context, error) error
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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for a missing container.
func WithScopeErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c echo.Context, v any) error {
			slog.Error("panic in handler", "panic", v, "path", c.Path())
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ScopeErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to get container from context", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ResolutionErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
	}
}

// Handle wraps a controller method for type-safe resolution within the
// request's scope.
//
// The method signature should be: func(T, echo.Context) error
//
// Example:
//
//	e.GET("/users/:id", iocecho.Handle((*UserController).GetByID))
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		ctx := c.Request().Context()
		container, ok := ioc.ContainerFromContext(ctx)
		if !ok {
			return cfg.ScopeErrorHandler(c, ErrNoContainer)
		}

		controller, resolveErr := ioc.Resolve[T](ctx, container)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
