// Package pgxconn is a concrete pool.ConnectionFactory backed by
// github.com/jackc/pgx/v5. The spec's terminal-error classification table
// (SQL states starting with "08", plus 57P01/57P02/57P03/01002) is the
// Postgres SQLSTATE vocabulary, so pgx is the natural driver to ground
// the factory abstraction on.
package pgxconn

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mxb1210/rexdb/pool"
)

// Factory opens Postgres connections for a fixed URL and credentials.
// It implements pool.ConnectionFactory.
type Factory struct {
	connString string
}

// NewFactory builds a Factory from a pool.Config. Whenever Username is
// set, Username/Password are appended to the URL as user/password query
// parameters, because Config keeps URL and credentials apart while pgx
// itself wants a single DSN. The URL is not inspected for credentials it
// already carries; those are appended to, not replaced. The query-string
// separator is chosen the same way sqliteconn.withPragmas picks one,
// so a URL that already carries query parameters (e.g. ?sslmode=disable)
// doesn't end up with two "?" in it.
func NewFactory(cfg pool.Config) *Factory {
	connString := cfg.URL
	if cfg.Username != "" {
		sep := "?"
		if strings.Contains(cfg.URL, "?") {
			sep = "&"
		}
		connString = fmt.Sprintf("%s%suser=%s&password=%s", cfg.URL, sep, cfg.Username, cfg.Password)
	}
	return &Factory{connString: connString}
}

// Open implements pool.ConnectionFactory.
func (f *Factory) Open(ctx context.Context) (pool.RawConn, error) {
	conn, err := pgx.Connect(ctx, f.connString)
	if err != nil {
		return nil, fmt.Errorf("pgxconn: connect: %w", err)
	}
	return &rawConn{conn: conn}, nil
}
