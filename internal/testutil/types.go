package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrConstructor = errors.New("constructor error")
	ErrDisposal    = errors.New("disposal error")
)

// TestService is a basic test service
type TestService struct {
	ID   string
	Data string
}

// NewTestService creates a new test service
func NewTestService() *TestService {
	return &TestService{
		ID:   uuid.NewString(),
		Data: "test",
	}
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	GetLogs() []string
	ID() string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	id   string
	logs []string
	mu   sync.Mutex
}

func NewTestLogger() TestLogger {
	return &TestLoggerImpl{id: uuid.NewString()}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) GetLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.logs...)
}

func (l *TestLoggerImpl) ID() string {
	return l.id
}

// TestDatabase is a dependency with no dependencies of its own.
type TestDatabase struct {
	Name string
}

func NewTestDatabase() *TestDatabase {
	return &TestDatabase{Name: "testdb"}
}

// TestServiceWithDeps takes positional dependencies.
type TestServiceWithDeps struct {
	Logger   TestLogger
	Database *TestDatabase
}

func NewTestServiceWithDeps(logger TestLogger, db *TestDatabase) *TestServiceWithDeps {
	return &TestServiceWithDeps{Logger: logger, Database: db}
}

// TestHandler is used for multi-registration tests.
type TestHandler interface {
	Handle() string
}

type TestHandlerImpl struct {
	name string
}

func NewTestHandler(name string) TestHandler {
	return &TestHandlerImpl{name: name}
}

func (h *TestHandlerImpl) Handle() string {
	return h.name
}

// TestDisposable counts its Close calls.
type TestDisposable struct {
	ID       string
	closes   atomic.Int32
	closeErr error
	onClose  func(id string)
}

func NewTestDisposable() *TestDisposable {
	return &TestDisposable{ID: uuid.NewString()}
}

// NewTestDisposableWithError returns a disposable whose Close fails with err.
func NewTestDisposableWithError(err error) *TestDisposable {
	return &TestDisposable{ID: uuid.NewString(), closeErr: err}
}

// OnClose registers a callback invoked with the disposable's ID on Close.
func (d *TestDisposable) OnClose(fn func(id string)) *TestDisposable {
	d.onClose = fn
	return d
}

func (d *TestDisposable) Close() error {
	d.closes.Add(1)
	if d.onClose != nil {
		d.onClose(d.ID)
	}
	return d.closeErr
}

// Closes returns the number of Close calls.
func (d *TestDisposable) Closes() int {
	return int(d.closes.Load())
}

// TestContextDisposable implements DisposableWithContext.
type TestContextDisposable struct {
	closes atomic.Int32
	ctx    atomic.Value
}

func NewTestContextDisposable() *TestContextDisposable {
	return &TestContextDisposable{}
}

func (d *TestContextDisposable) Close(ctx context.Context) error {
	d.closes.Add(1)
	d.ctx.Store(ctx)
	return ctx.Err()
}

func (d *TestContextDisposable) Closes() int {
	return int(d.closes.Load())
}

// ClosedWith returns the context passed to the last Close.
func (d *TestContextDisposable) ClosedWith() context.Context {
	ctx, _ := d.ctx.Load().(context.Context)
	return ctx
}

// Counter counts constructor invocations.
type Counter struct {
	n atomic.Int64
}

// Inc increments the counter and returns the new value.
func (c *Counter) Inc() int64 {
	return c.n.Add(1)
}

// Load returns the current count.
func (c *Counter) Load() int64 {
	return c.n.Load()
}
