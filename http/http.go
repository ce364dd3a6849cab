// Package http provides ioc integration for net/http.
//
// ScopeMiddleware begins a logical scope for every request and finishes it
// when the request completes, so scoped services are shared within one
// request and disposed after it.
//
// Example usage:
//
//	c := ioc.New()
//	// register services...
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/users/{id}", iochttp.Handle(UserController.GetByID))
//
//	http.ListenAndServe(":8080", iochttp.ScopeMiddleware(c)(mux))
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/junioryono/ioc"
)

// ErrNoContainer is reported by Handle when the request did not pass
// through ScopeMiddleware.
var ErrNoContainer = errors.New("no container in request context")

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when the scope cannot be started or a
	// middleware fails. If nil, a default handler returning 500 Internal
	// Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// FinishErrorHandler is called when disposing the request's scoped
	// instances fails. If nil, errors are logged using slog.
	FinishErrorHandler func(error)

	// Middlewares are functions that run after the scope begins.
	// They can be used to initialize request context, set user data, etc.
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
			slog.Error("failed to finish request scope", "error", err)
		},
	}
}

// ScopeMiddleware creates middleware that begins a scope for each request.
// The request context carries both the scope and the container, so
// handlers resolve with r.Context().
//
// The scope is finished when the request completes.
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
			slog.Error("panic in handler", "panic", v)
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

// Handle wraps a controller method for type-safe resolution within the
// request's scope. T is resolved with the request context.
//
// Example:
//
//	mux.HandleFunc("/users/{id}", iochttp.Handle((*UserController).GetByID))
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

// Wrap is Handle for a plain function taking the resolved service.
func Wrap[T any](fn func(T, http.ResponseWriter, *http.Request)) http.Handler {
	return Handle(fn)
}
