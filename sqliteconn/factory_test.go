package sqliteconn

import "testing"

func TestWithPragmas(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{":memory:", ":memory:"},
		{"/tmp/app.db", "/tmp/app.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"},
		{"/tmp/app.db?cache=shared", "/tmp/app.db?cache=shared&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"},
	}
	for _, tc := range cases {
		if got := withPragmas(tc.dsn); got != tc.want {
			t.Errorf("withPragmas(%q) = %q, want %q", tc.dsn, got, tc.want)
		}
	}
}
