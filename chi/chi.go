// Package chi provides ioc integration for the Chi router.
//
// This package provides middleware that begins a logical scope per request
// and type-safe handler wrappers for resolving controllers.
//
// Example usage:
//
//	c := ioc.New()
//	// register controllers...
//
//	r := chi.NewRouter()
//	r.Use(iocchi.ScopeMiddleware(c))
//
//	r.Post("/login", iocchi.Handle((*AuthController).Login))
//	r.Get("/users/{id}", iocchi.Handle((*UserController).GetByID))
package chi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/junioryono/ioc"
)

// ErrNoContainer is reported by Handle when the request did not pass
// through ScopeMiddleware.
var ErrNoContainer = errors.New("no container in request context")

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when the scope cannot begin or a middleware
	// fails. If nil, a default handler returning 500 Internal Server Error
	// is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// FinishErrorHandler is called when finishing the scope fails.
	// If nil, errors are logged using slog.
	FinishErrorHandler func(error)

	// Middlewares are functions that run after the scope begins.
	Middlewares []func(*ioc.Scope, *http.Request) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for scope and middleware failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
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
func WithMiddleware(mw func(*ioc.Scope, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		FinishErrorHandler: func(err error) {
			slog.Error("failed to finish scope", "error", err)
		},
	}
}

// ScopeMiddleware creates a Chi middleware that begins a scope for each
// request. The scope and the container are attached to the request context.
//
// The scope is finished when the request completes.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(iocchi.ScopeMiddleware(c))
func ScopeMiddleware(c *ioc.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c == nil || c.IsClosed() {
				cfg.ErrorHandler(w, r, ioc.ErrContainerClosed)
				return
			}

			ctx, scope := c.BeginScope(ioc.WithContainer(r.Context(), c))
			defer func() {
				if err := scope.Finish(ctx); err != nil {
					cfg.FinishErrorHandler(err)
				}
			}()

			r = r.WithContext(ctx)

			for _, mw := range cfg.Middlewares {
				if err := mw(scope, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Group mounts fn on an inline group of r whose requests run in their own
// scope. Routes registered outside the group are unaffected.
func Group(r chi.Router, c *ioc.Container, fn func(chi.Router), opts ...Option) chi.Router {
	return r.Group(func(g chi.Router) {
		g.Use(ScopeMiddleware(c, opts...))
		fn(g)
	})
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ScopeErrorHandler is called when the request carries no container.
	ScopeErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
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
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for a missing container.
func WithScopeErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			slog.Error("panic in handler", "panic", v, "route", routePattern(r))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ScopeErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to get container from context", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to resolve controller", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// Handle wraps a controller method for type-safe resolution within the
// request's scope.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	r.Get("/users/{id}", iocchi.Handle((*UserController).GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		c, ok := ioc.ContainerFromContext(r.Context())
		if !ok {
			cfg.ScopeErrorHandler(w, r, ErrNoContainer)
			return
		}

		controller, err := ioc.Resolve[T](r.Context(), c)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
