// Package sqliteconn is a concrete pool.ConnectionFactory backed by
// modernc.org/sqlite, for local development and testing without a live
// Postgres server. The DSN-pragma construction and single-connection
// posture are adapted from GoCodeAlone-workflow's SQLiteStore: there,
// one *sql.DB with SetMaxOpenConns(1) models one serialized writer; here
// that same one-DB-equals-one-connection unit becomes the raw connection
// this package's factory hands to the pool, which does its own pooling
// on top.
package sqliteconn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mxb1210/rexdb/pool"
)

// Factory opens one *sql.DB (pinned to a single underlying connection)
// per pool.ConnectionFactory.Open call.
type Factory struct {
	dsn string
}

// NewFactory builds a Factory from a pool.Config's URL field, which is
// treated as the SQLite DSN (a file path, or ":memory:").
func NewFactory(cfg pool.Config) *Factory {
	return &Factory{dsn: withPragmas(cfg.URL)}
}

func withPragmas(dsn string) string {
	if dsn == ":memory:" {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
}

// Open implements pool.ConnectionFactory.
func (f *Factory) Open(ctx context.Context) (pool.RawConn, error) {
	db, err := sql.Open("sqlite", f.dsn)
	if err != nil {
		return nil, fmt.Errorf("sqliteconn: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if f.dsn == ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqliteconn: enable foreign keys: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqliteconn: ping: %w", err)
	}

	return &rawConn{db: db}, nil
}
