package fiber

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/junioryono/ioc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types
type testService struct {
	ID     string
	Value  int
	closed bool
}

func (s *testService) Close() error {
	s.closed = true
	return nil
}

type testController struct {
	Service *testService
}

func newTestController(svc *testService) *testController {
	return &testController{Service: svc}
}

func (c *testController) GetValue(ctx *fiber.Ctx) error {
	return ctx.SendString(c.Service.ID)
}

func (c *testController) Panic(ctx *fiber.Ctx) error {
	panic("test panic")
}

func newContainer(t *testing.T, id string, withController bool) *ioc.Container {
	t.Helper()

	c := ioc.New(ioc.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, ioc.Register[*testService](c, func() *testService {
		return &testService{ID: id, Value: 1}
	}, ioc.Scoped))
	if withController {
		require.NoError(t, ioc.Register[*testController](c, newTestController, ioc.Scoped))
	}
	return c
}

func doRequest(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestScopeMiddleware(t *testing.T) {
	t.Run("begins scope and stores in locals", func(t *testing.T) {
		container := newContainer(t, "scoped", false)

		var resolvedService *testService

		app := fiber.New()
		app.Use(ScopeMiddleware(container))
		app.Get("/test", func(c *fiber.Ctx) error {
			scope := FromContext(c)
			assert.NotNil(t, scope)

			fromCtx, ok := ioc.ScopeFromContext(c.UserContext())
			assert.True(t, ok)
			assert.Same(t, scope, fromCtx)

			var err error
			resolvedService, err = Resolve[*testService](c)
			assert.NoError(t, err)

			return c.SendStatus(http.StatusOK)
		})

		resp := doRequest(t, app, "/test")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, resolvedService)
		assert.Equal(t, "scoped", resolvedService.ID)
		assert.True(t, resolvedService.closed)
	})

	t.Run("calls error handler when container is closed", func(t *testing.T) {
		errorHandlerCalled := false

		container := newContainer(t, "test", false)
		require.NoError(t, container.Close())

		app := fiber.New()
		app.Use(ScopeMiddleware(container,
			WithErrorHandler(func(c *fiber.Ctx, err error) error {
				errorHandlerCalled = true
				assert.ErrorIs(t, err, ioc.ErrContainerClosed)
				return c.SendStatus(http.StatusServiceUnavailable)
			}),
		))
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		resp := doRequest(t, app, "/test")

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("runs middlewares in order", func(t *testing.T) {
		var mwOrder []int
		container := newContainer(t, "test", false)

		app := fiber.New()
		app.Use(ScopeMiddleware(container,
			WithMiddleware(func(scope *ioc.Scope, c *fiber.Ctx) error {
				mwOrder = append(mwOrder, 1)
				return nil
			}),
			WithMiddleware(func(scope *ioc.Scope, c *fiber.Ctx) error {
				mwOrder = append(mwOrder, 2)
				return nil
			}),
		))
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		doRequest(t, app, "/test")

		assert.Equal(t, []int{1, 2}, mwOrder)
	})

	t.Run("calls error handler when middleware fails", func(t *testing.T) {
		errorHandlerCalled := false
		expectedErr := errors.New("middleware failed")
		container := newContainer(t, "test", false)

		app := fiber.New()
		app.Use(ScopeMiddleware(container,
			WithMiddleware(func(scope *ioc.Scope, c *fiber.Ctx) error {
				return expectedErr
			}),
			WithErrorHandler(func(c *fiber.Ctx, err error) error {
				errorHandlerCalled = true
				assert.Equal(t, expectedErr, err)
				return c.SendStatus(http.StatusBadRequest)
			}),
		))
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		resp := doRequest(t, app, "/test")

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandle(t *testing.T) {
	t.Run("resolves controller and calls method", func(t *testing.T) {
		container := newContainer(t, "handled", true)

		app := fiber.New()
		app.Use(ScopeMiddleware(container))
		app.Get("/value", Handle((*testController).GetValue))

		resp := doRequest(t, app, "/value")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "handled", string(body))
	})

	t.Run("calls scope error handler when no container", func(t *testing.T) {
		errorHandlerCalled := false

		app := fiber.New()
		app.Get("/value", Handle((*testController).GetValue,
			WithScopeErrorHandler(func(c *fiber.Ctx, err error) error {
				errorHandlerCalled = true
				assert.ErrorIs(t, err, ErrNoContainer)
				return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "no scope"})
			}),
		))

		resp := doRequest(t, app, "/value")

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("calls resolution error handler when service not found", func(t *testing.T) {
		errorHandlerCalled := false
		container := newContainer(t, "test", false)

		app := fiber.New()
		app.Use(ScopeMiddleware(container))
		app.Get("/value", Handle((*testController).GetValue,
			WithResolutionErrorHandler(func(c *fiber.Ctx, err error) error {
				errorHandlerCalled = true
				assert.ErrorIs(t, err, ioc.ErrServiceNotFound)
				return c.SendStatus(http.StatusNotFound)
			}),
		))

		resp := doRequest(t, app, "/value")

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("recovers from panic when enabled", func(t *testing.T) {
		panicHandlerCalled := false
		container := newContainer(t, "test", true)

		app := fiber.New()
		app.Use(ScopeMiddleware(container))
		app.Get("/panic", Handle((*testController).Panic,
			WithPanicRecovery(true),
			WithPanicHandler(func(c *fiber.Ctx, v any) error {
				panicHandlerCalled = true
				assert.Equal(t, "test panic", v)
				return c.SendStatus(http.StatusInternalServerError)
			}),
		))

		resp := doRequest(t, app, "/panic")

		assert.True(t, panicHandlerCalled)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestResolve(t *testing.T) {
	t.Run("fails without middleware", func(t *testing.T) {
		var resolveErr error

		app := fiber.New()
		app.Get("/test", func(c *fiber.Ctx) error {
			_, resolveErr = Resolve[*testService](c)
			return c.SendStatus(http.StatusOK)
		})

		doRequest(t, app, "/test")
		assert.ErrorIs(t, resolveErr, ErrNoContainer)
	})

	t.Run("passes resolve options through", func(t *testing.T) {
		container := newContainer(t, "test", false)
		var got *testController

		app := fiber.New()
		app.Use(ScopeMiddleware(container))
		app.Get("/test", func(c *fiber.Ctx) error {
			var err error
			got, err = Resolve[*testController](c, ioc.OrDefault())
			assert.NoError(t, err)
			return c.SendStatus(http.StatusOK)
		})

		doRequest(t, app, "/test")
		assert.Nil(t, got)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("returns nil when no scope", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", func(c *fiber.Ctx) error {
			assert.Nil(t, FromContext(c))
			return c.SendStatus(http.StatusOK)
		})

		resp := doRequest(t, app, "/test")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("returns scope when present", func(t *testing.T) {
		container := newContainer(t, "test", false)
		var scopeFound bool

		app := fiber.New()
		app.Use(ScopeMiddleware(container))
		app.Get("/test", func(c *fiber.Ctx) error {
			scopeFound = FromContext(c) != nil
			return c.SendStatus(http.StatusOK)
		})

		doRequest(t, app, "/test")
		assert.True(t, scopeFound)
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Run("default error handler returns JSON error", func(t *testing.T) {
		cfg := defaultConfig()

		app := fiber.New()
		app.Get("/test", func(c *fiber.Ctx) error {
			return cfg.ErrorHandler(c, errors.New("test error"))
		})

		resp := doRequest(t, app, "/test")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestDefaultHandlerConfig(t *testing.T) {
	t.Run("panic recovery disabled by default", func(t *testing.T) {
		cfg := defaultHandlerConfig()
		assert.False(t, cfg.PanicRecovery)
	})
}

func TestIntegration(t *testing.T) {
	t.Run("full request lifecycle", func(t *testing.T) {
		requestValues := make(map[string]string)
		container := newContainer(t, "integration", true)

		app := fiber.New()
		app.Use(ScopeMiddleware(container,
			WithMiddleware(func(scope *ioc.Scope, c *fiber.Ctx) error {
				requestValues["initialized"] = "true"
				return nil
			}),
		))
		app.Get("/test", Handle(func(ctrl *testController, c *fiber.Ctx) error {
			requestValues["service_id"] = ctrl.Service.ID
			return c.SendString("OK")
		}))

		resp := doRequest(t, app, "/test")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "true", requestValues["initialized"])
		assert.Equal(t, "integration", requestValues["service_id"])
	})
}
