package ioc

import "context"

// Disposable is implemented by services that release resources when their
// scope finishes or their container is closed.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext allows disposal with context for graceful shutdown.
// The context passed to Close is the one given to Scope.Finish.
//
// Example:
//
//	type Worker struct {
//	    stop chan struct{}
//	    done chan struct{}
//	}
//
//	func (w *Worker) Close(ctx context.Context) error {
//	    close(w.stop)
//	    select {
//	    case <-w.done:
//	        return nil
//	    case <-ctx.Done():
//	        return ctx.Err()
//	    }
//	}
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// DisposableFunc adapts a plain function to Disposable.
type DisposableFunc func() error

// Close calls f.
func (f DisposableFunc) Close() error {
	return f()
}

func isDisposable(v any) bool {
	switch v.(type) {
	case Disposable, DisposableWithContext:
		return true
	default:
		return false
	}
}
