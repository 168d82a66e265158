package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ConnectionProxy wraps a raw driver connection, intercepting Close,
// PrepareContext, and QueryContext. ExecContext is forwarded with the same
// closed check and error classification; the raw connection's Ping is
// reachable only through IsValid. A proxy is created by its Pool, owns its
// raw connection exclusively, and holds a non-owning back-reference to
// that Pool.
type ConnectionProxy struct {
	id   string
	raw  RawConn
	pool *Pool

	creationTime time.Time
	lastAccess   atomic.Int64 // unix nanoseconds

	closed      atomic.Bool
	forceClosed atomic.Bool

	stmtMu           sync.Mutex
	openedStatements []closerHandle
}

// closerHandle pairs a Statement/Rows with the method used to close it,
// so proxy.Close can unwind every descendant regardless of which
// intercepted method produced it.
type closerHandle struct {
	close func(ctx context.Context) error
}

func newConnectionProxy(raw RawConn, p *Pool) *ConnectionProxy {
	now := time.Now()
	cp := &ConnectionProxy{
		id:           uuid.NewString(),
		raw:          raw,
		pool:         p,
		creationTime: now,
	}
	cp.lastAccess.Store(now.UnixNano())
	cp.closed.Store(true) // idle proxies are logically closed until acquired
	return cp
}

// ID returns the proxy's diagnostic identifier.
func (c *ConnectionProxy) ID() string { return c.id }

// CreationTime returns when the underlying raw connection was opened.
func (c *ConnectionProxy) CreationTime() time.Time { return c.creationTime }

// LastAccess returns the last time the proxy was released to the pool.
func (c *ConnectionProxy) LastAccess() time.Time {
	return time.Unix(0, c.lastAccess.Load())
}

// IsClosed reports whether the proxy is logically closed.
func (c *ConnectionProxy) IsClosed() bool { return c.closed.Load() }

// IsForceClosed reports whether a fatal transport error has permanently
// retired this proxy from the idle queue.
func (c *ConnectionProxy) IsForceClosed() bool { return c.forceClosed.Load() }

// IsValid reports whether the connection is usable: false if logically
// closed, otherwise delegated to the driver's own validation.
func (c *ConnectionProxy) IsValid(ctx context.Context) bool {
	if c.closed.Load() {
		return false
	}
	return c.raw.Ping(ctx) == nil
}

// PrepareContext asserts the proxy is open, delegates to the raw
// connection, registers the resulting Statement for close-on-release, and
// classifies any driver error.
func (c *ConnectionProxy) PrepareContext(ctx context.Context, query string) (Statement, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	stmt, err := c.raw.PrepareContext(ctx, query)
	if err != nil {
		return nil, c.checkException(err)
	}
	c.track(func(ctx context.Context) error { return stmt.Close(ctx) })
	return stmt, nil
}

// QueryContext asserts the proxy is open, delegates to the raw
// connection, registers the resulting Rows for close-on-release, and
// classifies any driver error.
func (c *ConnectionProxy) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	rows, err := c.raw.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, c.checkException(err)
	}
	c.track(func(ctx context.Context) error { return rows.Close(ctx) })
	return rows, nil
}

// ExecContext asserts the proxy is open and delegates to the raw
// connection. It tracks no child handle; driver errors still pass through
// checkException so fatal errors still force-close the proxy.
func (c *ConnectionProxy) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	if c.closed.Load() {
		return 0, ErrConnectionClosed
	}
	n, err := c.raw.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, c.checkException(err)
	}
	return n, nil
}

func (c *ConnectionProxy) track(close func(ctx context.Context) error) {
	c.stmtMu.Lock()
	c.openedStatements = append(c.openedStatements, closerHandle{close: close})
	c.stmtMu.Unlock()
}

// checkException classifies err per the SQL-state table in spec.md §6.
// Terminal errors set forceClosed; the original error is always returned
// unchanged to the caller.
func (c *ConnectionProxy) checkException(err error) error {
	if classifyErr(err) {
		c.forceClosed.Store(true)
		if c.pool != nil {
			c.pool.metrics.observeForceClose()
		}
	}
	return err
}

// Close logically closes the proxy: every tracked statement/cursor is
// closed in reverse insertion order (errors swallowed into the pool's
// logger, never propagated), the list is cleared, and the proxy is
// released back to its pool. Calling Close twice is a no-op the second
// time — only the first call triggers a release.
func (c *ConnectionProxy) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.stmtMu.Lock()
	stmts := c.openedStatements
	c.openedStatements = nil
	c.stmtMu.Unlock()

	for i := len(stmts) - 1; i >= 0; i-- {
		if err := stmts[i].close(ctx); err != nil {
			c.logger().Warn("pool: error closing child statement", "proxy", c.id, "error", err)
		}
	}

	if c.pool != nil {
		c.pool.release(c)
	}
	return nil
}

func (c *ConnectionProxy) logger() *slog.Logger {
	if c.pool != nil && c.pool.logger != nil {
		return c.pool.logger
	}
	return slog.Default()
}

func (c *ConnectionProxy) terminate(ctx context.Context) {
	if err := c.raw.Close(ctx); err != nil {
		c.logger().Warn("pool: error terminating raw connection", "proxy", c.id, "error", err)
	}
}

func (c *ConnectionProxy) String() string {
	return fmt.Sprintf("ConnectionProxy{id=%s closed=%v forceClosed=%v}", c.id, c.closed.Load(), c.forceClosed.Load())
}
