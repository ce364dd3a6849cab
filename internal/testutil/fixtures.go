package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/junioryono/ioc"
	"github.com/stretchr/testify/require"
)

// ServiceFixture represents a test fixture for services
type ServiceFixture struct {
	Name        string
	ServiceType any // a nil pointer to the service type, e.g. (*TestLogger)(nil)
	Constructor any
	Reuse       ioc.Reuse
}

// CommonFixtures provides common service configurations for testing
var CommonFixtures = struct {
	Logger   ServiceFixture
	Database ServiceFixture
	Service  ServiceFixture
}{
	Logger: ServiceFixture{
		Name:        "Logger",
		ServiceType: (*TestLogger)(nil),
		Constructor: NewTestLogger,
		Reuse:       ioc.Transient,
	},
	Database: ServiceFixture{
		Name:        "Database",
		ServiceType: (**TestDatabase)(nil),
		Constructor: NewTestDatabase,
		Reuse:       ioc.Singleton,
	},
	Service: ServiceFixture{
		Name:        "Service",
		ServiceType: (**TestServiceWithDeps)(nil),
		Constructor: NewTestServiceWithDeps,
		Reuse:       ioc.Scoped,
	},
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewContainer returns a quiet container closed when the test ends.
func NewContainer(t *testing.T, opts ...ioc.Option) *ioc.Container {
	t.Helper()

	c := ioc.New(append([]ioc.Option{ioc.WithLogger(DiscardLogger())}, opts...)...)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

// NewContainerWithFixtures registers the given fixtures in a new container.
func NewContainerWithFixtures(t *testing.T, fixtures ...ServiceFixture) *ioc.Container {
	t.Helper()

	c := NewContainer(t)
	for _, f := range fixtures {
		require.NoError(t, c.Register(serviceTypeOf(f.ServiceType), f.Constructor, f.Reuse), "fixture %s", f.Name)
	}
	return c
}

// CreateContainerWithBasicServices registers the logger, database and service fixtures.
func CreateContainerWithBasicServices(t *testing.T) *ioc.Container {
	t.Helper()
	return NewContainerWithFixtures(t, CommonFixtures.Logger, CommonFixtures.Database, CommonFixtures.Service)
}
