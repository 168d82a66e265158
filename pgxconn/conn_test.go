package pgxconn

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mxb1210/rexdb/pool"
)

func TestWrapErr_ExposesSQLState(t *testing.T) {
	underlying := &pgconn.PgError{Code: "57P01", Message: "terminating connection due to administrator command"}

	wrapped := wrapErr(underlying)

	var sse pool.SQLStateError
	if wrapped == nil {
		t.Fatalf("wrapErr returned nil for a non-nil error")
	}
	if se, ok := wrapped.(pool.SQLStateError); ok {
		sse = se
	} else {
		t.Fatalf("wrapErr(%v) does not implement pool.SQLStateError", wrapped)
	}
	if got := sse.SQLState(); got != "57P01" {
		t.Fatalf("SQLState() = %q, want 57P01", got)
	}
}

func TestWrapErr_Nil(t *testing.T) {
	if err := wrapErr(nil); err != nil {
		t.Fatalf("wrapErr(nil) = %v, want nil", err)
	}
}

func TestNewFactory_ConnStringIncludesCredentials(t *testing.T) {
	cfg := pool.Config{
		DriverName: "postgres",
		URL:        "postgres://db.internal:5432/app",
		Username:   "svc",
		Password:   "secret",
	}
	f := NewFactory(cfg)
	if f.connString == cfg.URL {
		t.Fatalf("expected credentials to be folded into the connection string")
	}
}

func TestNewFactory_PreservesExistingQueryString(t *testing.T) {
	cfg := pool.Config{
		DriverName: "postgres",
		URL:        "postgres://db.internal:5432/app?sslmode=disable",
		Username:   "svc",
		Password:   "secret",
	}
	f := NewFactory(cfg)

	want := "postgres://db.internal:5432/app?sslmode=disable&user=svc&password=secret"
	if f.connString != want {
		t.Fatalf("connString = %q, want %q", f.connString, want)
	}
	if strings.Count(f.connString, "?") != 1 {
		t.Fatalf("connString = %q, want exactly one '?'", f.connString)
	}
}
