// Package gin provides ioc integration for the Gin web framework.
//
// ScopeMiddleware begins a logical scope per request. Handle resolves a
// controller within it.
//
// Example usage:
//
//	c := ioc.New()
//	// register controllers...
//
//	g := gin.New()
//	g.Use(iocgin.ScopeMiddleware(c))
//
//	g.POST("/login", iocgin.Handle((*AuthController).Login))
//	g.GET("/users/:id", iocgin.Handle((*UserController).GetByID))
package gin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junioryono/ioc"
)

// ScopeKey is the gin.Context key holding the request's *ioc.Scope.
const ScopeKey = "ioc.scope"

// ErrNoContainer is reported by Handle when the request did not pass
// through ScopeMiddleware.
var ErrNoContainer = errors.New("no container in request context")

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when the scope cannot begin or a middleware
	// fails. The chain is aborted afterwards.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*gin.Context, error)

	// FinishErrorHandler is called when finishing the scope fails.
	// If nil, errors are logged using slog.
	FinishErrorHandler func(*gin.Context, error)

	// Middlewares are functions that run after the scope begins.
	// They can be used to initialize request context, set user claims, etc.
	Middlewares []func(*ioc.Scope, *gin.Context) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for scope and middleware failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithFinishErrorHandler sets the error handler for scope finish failures.
func WithFinishErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.FinishErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the scope begins.
// Multiple middlewares are executed in the order they are added.
//
// Example:
//
//	iocgin.ScopeMiddleware(c,
//	    iocgin.WithMiddleware(func(scope *ioc.Scope, gc *gin.Context) error {
//	        reqCtx := ioc.MustResolve[*request.Context](gc.Request.Context(), c)
//	        reqCtx.UserID = gc.GetHeader("X-User")
//	        return nil
//	    }),
//	)
func WithMiddleware(mw func(*ioc.Scope, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, err error) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
		FinishErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to finish scope", "error", err, "path", c.FullPath())
		},
	}
}

// ScopeMiddleware creates a gin.HandlerFunc that begins a scope for each
// request. The scope and container are attached to the request context and
// the scope is stored on the gin.Context under ScopeKey.
//
// The scope is finished after the rest of the chain has run.
func ScopeMiddleware(container *ioc.Container, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if container == nil || container.IsClosed() {
			cfg.ErrorHandler(c, ioc.ErrContainerClosed)
			c.Abort()
			return
		}

		ctx, scope := container.BeginScope(ioc.WithContainer(c.Request.Context(), container))
		defer func() {
			if err := scope.Finish(ctx); err != nil {
				cfg.FinishErrorHandler(c, err)
			}
		}()

		c.Request = c.Request.WithContext(ctx)
		c.Set(ScopeKey, scope)

		for _, mw := range cfg.Middlewares {
			if err := mw(scope, c); err != nil {
				cfg.ErrorHandler(c, err)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// ScopeFrom returns the scope ScopeMiddleware stored on c.
func ScopeFrom(c *gin.Context) (*ioc.Scope, bool) {
	v, ok := c.Get(ScopeKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*ioc.Scope)
	return s, ok && s != nil
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	// If true, panics are caught and handled by PanicHandler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*gin.Context, any)

	// ScopeErrorHandler is called when the request carries no container.
	ScopeErrorHandler func(*gin.Context, error)

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(*gin.Context, error)
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
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for a missing container.
func WithScopeErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	abort := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal Server Error",
		})
	}
	return &HandlerConfig{
		PanicHandler: func(c *gin.Context, r any) {
			slog.Error("panic in handler", "panic", r)
			abort(c)
		},
		ScopeErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to get container from context", "error", err)
			abort(c)
		},
		ResolutionErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to resolve controller", "error", err)
			abort(c)
		},
	}
}

// Handle wraps a controller method for type-safe resolution within the
// request's scope.
//
// The method signature should be: func(T, *gin.Context)
//
// Example:
//
//	g.GET("/users/:id", iocgin.Handle((*UserController).GetByID))
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.PanicHandler(c, r)
				}
			}()
		}

		ctx := c.Request.Context()
		container, ok := ioc.ContainerFromContext(ctx)
		if !ok {
			cfg.ScopeErrorHandler(c, ErrNoContainer)
			return
		}

		controller, err := ioc.Resolve[T](ctx, container)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
