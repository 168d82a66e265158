package sqliteconn

import (
	"context"
	"database/sql"

	"github.com/mxb1210/rexdb/pool"
)

// rawConn adapts *sql.DB (pinned to one connection) to pool.RawConn.
type rawConn struct {
	db *sql.DB
}

func (c *rawConn) PrepareContext(ctx context.Context, query string) (pool.Statement, error) {
	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &preparedStatement{stmt: stmt}, nil
}

func (c *rawConn) QueryContext(ctx context.Context, query string, args ...any) (pool.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rowsCursor{rows: rows}, nil
}

func (c *rawConn) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *rawConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *rawConn) Close(ctx context.Context) error {
	return c.db.Close()
}

type preparedStatement struct {
	stmt *sql.Stmt
}

func (s *preparedStatement) Close(ctx context.Context) error {
	return s.stmt.Close()
}

type rowsCursor struct {
	rows *sql.Rows
}

func (r *rowsCursor) Close(ctx context.Context) error {
	return r.rows.Close()
}
