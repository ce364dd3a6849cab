package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/junioryono/ioc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types
type testService struct {
	ID     string
	closed int
}

func (s *testService) Close() error {
	s.closed++
	return nil
}

type failingService struct{}

func (*failingService) Close() error { return errors.New("close failed") }

type testController struct {
	Service *testService
}

func newTestController(svc *testService) *testController {
	return &testController{Service: svc}
}

func (c *testController) GetValue(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(c.Service.ID))
}

func (c *testController) Panic(w http.ResponseWriter, r *http.Request) {
	panic("test panic")
}

func newTestContainer(t *testing.T, id string) *ioc.Container {
	t.Helper()

	c := ioc.New(ioc.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, ioc.Register[*testService](c, func() *testService {
		return &testService{ID: id}
	}, ioc.Scoped))
	require.NoError(t, ioc.Register[*testController](c, newTestController, ioc.Scoped))
	return c
}

func TestScopeMiddleware(t *testing.T) {
	t.Run("begins scope and attaches it to the context", func(t *testing.T) {
		c := newTestContainer(t, "scoped")

		var first, second *testService
		handler := ScopeMiddleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := ioc.ScopeFromContext(r.Context())
			assert.True(t, ok)

			var err error
			first, err = ioc.Resolve[*testService](r.Context(), c)
			assert.NoError(t, err)
			second, err = ioc.Resolve[*testService](r.Context(), c)
			assert.NoError(t, err)

			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, first)
		assert.Same(t, first, second)
		assert.Equal(t, "scoped", first.ID)
	})

	t.Run("scope is finished after request", func(t *testing.T) {
		c := newTestContainer(t, "test")
		finishFailed := false

		var svc *testService
		handler := ScopeMiddleware(c,
			WithFinishErrorHandler(func(err error) {
				finishFailed = true
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			svc = ioc.MustResolve[*testService](r.Context(), c)
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.False(t, finishFailed)
		assert.Equal(t, 1, svc.closed)
	})

	t.Run("reports finish failures", func(t *testing.T) {
		c := newTestContainer(t, "test")
		require.NoError(t, ioc.Register[*failingService](c, func() *failingService { return &failingService{} }, ioc.Scoped))

		var finishErr error
		handler := ScopeMiddleware(c,
			WithFinishErrorHandler(func(err error) {
				finishErr = err
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ioc.MustResolve[*failingService](r.Context(), c)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

		var disposalErr ioc.DisposalError
		assert.ErrorAs(t, finishErr, &disposalErr)
	})

	t.Run("calls error handler when the container is closed", func(t *testing.T) {
		c := newTestContainer(t, "test")
		require.NoError(t, c.Close())

		var capturedError error
		handler := ScopeMiddleware(c,
			WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				capturedError = err
				w.WriteHeader(http.StatusServiceUnavailable)
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.ErrorIs(t, capturedError, ioc.ErrContainerClosed)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("runs middlewares in order", func(t *testing.T) {
		c := newTestContainer(t, "test")
		var mwOrder []int

		handler := ScopeMiddleware(c,
			WithMiddleware(func(scope *ioc.Scope, r *http.Request) error {
				mwOrder = append(mwOrder, 1)
				return nil
			}),
			WithMiddleware(func(scope *ioc.Scope, r *http.Request) error {
				mwOrder = append(mwOrder, 2)
				return nil
			}),
			WithMiddleware(func(scope *ioc.Scope, r *http.Request) error {
				mwOrder = append(mwOrder, 3)
				return nil
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, []int{1, 2, 3}, mwOrder)
	})

	t.Run("middlewares can register disposables with the scope", func(t *testing.T) {
		c := newTestContainer(t, "test")
		extra := &testService{ID: "extra"}

		handler := ScopeMiddleware(c,
			WithMiddleware(func(scope *ioc.Scope, r *http.Request) error {
				return scope.DisposeOnFinish(r.Context(), extra)
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, 1, extra.closed)
	})

	t.Run("calls error handler when middleware fails", func(t *testing.T) {
		c := newTestContainer(t, "test")
		errorHandlerCalled := false
		expectedErr := errors.New("middleware failed")

		handler := ScopeMiddleware(c,
			WithMiddleware(func(scope *ioc.Scope, r *http.Request) error {
				return expectedErr
			}),
			WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				errorHandlerCalled = true
				assert.Equal(t, expectedErr, err)
				w.WriteHeader(http.StatusBadRequest)
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandle(t *testing.T) {
	t.Run("resolves controller and calls method", func(t *testing.T) {
		c := newTestContainer(t, "handled")

		mux := http.NewServeMux()
		mux.HandleFunc("/value", Handle((*testController).GetValue))

		rec := httptest.NewRecorder()
		ScopeMiddleware(c)(mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/value", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "handled", string(body))
	})

	t.Run("calls scope error handler without the middleware", func(t *testing.T) {
		var capturedError error

		handler := Handle((*testController).GetValue,
			WithScopeErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				capturedError = err
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("no scope"))
			}),
		)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/value", nil))

		assert.ErrorIs(t, capturedError, ErrNoContainer)
		body, _ := io.ReadAll(rec.Body)
		assert.Contains(t, string(body), "no scope")
	})

	t.Run("calls resolution error handler when service not found", func(t *testing.T) {
		c := newTestContainer(t, "test")
		ioc.Unregister[*testController](c)

		var capturedError error
		handler := ScopeMiddleware(c)(Handle((*testController).GetValue,
			WithResolutionErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				capturedError = err
				w.WriteHeader(http.StatusNotFound)
			}),
		))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/value", nil))

		assert.ErrorIs(t, capturedError, ioc.ErrServiceNotFound)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("recovers from panic when enabled", func(t *testing.T) {
		c := newTestContainer(t, "test")
		panicHandlerCalled := false

		handler := ScopeMiddleware(c)(Handle((*testController).Panic,
			WithPanicRecovery(true),
			WithPanicHandler(func(w http.ResponseWriter, r *http.Request, v any) {
				panicHandlerCalled = true
				assert.Equal(t, "test panic", v)
				w.WriteHeader(http.StatusInternalServerError)
			}),
		))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.True(t, panicHandlerCalled)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("does not recover from panic when disabled", func(t *testing.T) {
		c := newTestContainer(t, "test")
		handler := ScopeMiddleware(c)(Handle((*testController).Panic, WithPanicRecovery(false)))

		assert.Panics(t, func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))
		})
	})
}

func TestWrap(t *testing.T) {
	c := newTestContainer(t, "wrapped")

	handler := ScopeMiddleware(c)(Wrap(func(ctrl *testController, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("wrapped: " + ctrl.Service.ID))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wrapped", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "wrapped: wrapped", string(body))
}

func TestDefaultConfig(t *testing.T) {
	t.Run("default error handler returns 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		defaultConfig().ErrorHandler(rec, httptest.NewRequest(http.MethodGet, "/test", nil), errors.New("test error"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("default finish error handler logs error", func(t *testing.T) {
		assert.NotPanics(t, func() {
			defaultConfig().FinishErrorHandler(errors.New("finish error"))
		})
	})
}

func TestDefaultHandlerConfig(t *testing.T) {
	cfg := defaultHandlerConfig()
	assert.False(t, cfg.PanicRecovery)

	for name, call := range map[string]func(http.ResponseWriter, *http.Request){
		"panic":      func(w http.ResponseWriter, r *http.Request) { cfg.PanicHandler(w, r, "panic value") },
		"scope":      func(w http.ResponseWriter, r *http.Request) { cfg.ScopeErrorHandler(w, r, ErrNoContainer) },
		"resolution": func(w http.ResponseWriter, r *http.Request) { cfg.ResolutionErrorHandler(w, r, ioc.ErrServiceNotFound) },
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			call(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
		})
	}
}

func TestIntegration(t *testing.T) {
	c := newTestContainer(t, "integration")

	var seen []*testService
	mux := http.NewServeMux()
	mux.HandleFunc("/test", Handle(func(ctrl *testController, w http.ResponseWriter, r *http.Request) {
		seen = append(seen, ctrl.Service)
		assert.Same(t, ctrl.Service, ioc.MustResolve[*testService](r.Context(), c))
		w.Write([]byte("OK"))
	}))

	initialized := 0
	handler := ScopeMiddleware(c,
		WithMiddleware(func(scope *ioc.Scope, r *http.Request) error {
			initialized++
			return nil
		}),
	)(mux)

	for range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(context.Background()))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2, initialized)
	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1], "each request gets a fresh scope")
	assert.Equal(t, 1, seen[0].closed)
}
