package pool

import "context"

// RawConn is the capability surface a driver connection must expose to be
// admitted into the pool. ConnectionProxy wraps a RawConn, intercepting
// Close, PrepareContext and QueryContext, forwarding ExecContext, and
// using Ping only through its IsValid method.
type RawConn interface {
	// PrepareContext parses and plans query for repeated execution,
	// returning a Statement that must be closed by the caller.
	PrepareContext(ctx context.Context, query string) (Statement, error)

	// QueryContext runs query and returns a cursor-like Rows that must be
	// closed by the caller.
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)

	// ExecContext runs query for side effects and reports rows affected.
	ExecContext(ctx context.Context, query string, args ...any) (int64, error)

	// Ping validates liveness against the server. Implementations should
	// respect ctx's deadline.
	Ping(ctx context.Context) error

	// Close terminates the underlying transport. It is called only when
	// the connection leaves the pool for good (eviction, force-close,
	// shutdown, or a failed admission probe); a caller's logical Close of
	// a healthy proxy returns it to the idle queue instead.
	Close(ctx context.Context) error
}

// Statement is a prepared statement handle. It is tracked in a proxy's
// openedStatements list and closed when the proxy is logically closed.
type Statement interface {
	Close(ctx context.Context) error
}

// Rows is a query cursor handle, tracked the same way a Statement is.
type Rows interface {
	Statement
}

// SQLStateError is implemented by driver errors that can report a
// SQL state / SQLSTATE code, the basis for classifying an error as
// terminal (connection-fatal) versus transient. Concrete ConnectionFactory
// packages (e.g. pgxconn) attach this to the errors their RawConn
// implementations return.
type SQLStateError interface {
	error
	SQLState() string
}
