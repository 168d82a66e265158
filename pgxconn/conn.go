package pgxconn

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mxb1210/rexdb/pool"
)

// rawConn adapts *pgx.Conn to pool.RawConn.
type rawConn struct {
	conn *pgx.Conn
}

func (c *rawConn) PrepareContext(ctx context.Context, query string) (pool.Statement, error) {
	desc, err := c.conn.Prepare(ctx, "", query)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &preparedStatement{conn: c.conn, name: desc.Name}, nil
}

func (c *rawConn) QueryContext(ctx context.Context, query string, args ...any) (pool.Rows, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &rowsCursor{rows: rows}, nil
}

func (c *rawConn) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, wrapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (c *rawConn) Ping(ctx context.Context) error {
	return wrapErr(c.conn.Ping(ctx))
}

func (c *rawConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// preparedStatement tracks a prepared statement for later deallocation.
// Close deallocates a named statement; PrepareContext prepares with an
// empty name (the connection's unnamed statement), so for statements it
// returns, name is empty and Close does nothing.
type preparedStatement struct {
	conn *pgx.Conn
	name string
}

func (s *preparedStatement) Close(ctx context.Context) error {
	if s.name == "" {
		return nil
	}
	return wrapErr(s.conn.Deallocate(ctx, s.name))
}

// rowsCursor adapts pgx.Rows to pool.Rows. pgx.Rows.Close never returns an
// error directly (errors surface from Err()), so Close here checks Err
// after closing to still classify any terminal failure.
type rowsCursor struct {
	rows pgx.Rows
}

func (r *rowsCursor) Close(ctx context.Context) error {
	r.rows.Close()
	return wrapErr(r.rows.Err())
}

// pgError adapts *pgconn.PgError to pool.SQLStateError.
type pgError struct {
	*pgconn.PgError
}

func (e *pgError) SQLState() string { return e.Code }

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &pgError{PgError: pgErr}
	}
	return err
}
