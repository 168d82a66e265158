// Package dialect supplies per-vendor liveness-probe SQL. It is the
// minimal concrete instance of the pool's Dialect collaborator: the pool
// core only needs a single string per driver, resolved once and cached.
package dialect

// Resolver maps a driver name to its liveness-probe query.
type Resolver struct {
	driver  string
	queries map[string]string
}

// defaultQueries are the liveness probes for the drivers this module
// ships factories for (pgxconn, sqliteconn).
var defaultQueries = map[string]string{
	"postgres": "SELECT 1",
	"sqlite":   "SELECT 1",
}

// NewResolver returns a Dialect that answers with the liveness query for
// driver, falling back to "SELECT 1" for unrecognized drivers since that
// is a valid no-op round trip on every SQL dialect this module targets.
func NewResolver(driver string) *Resolver {
	return &Resolver{driver: driver, queries: defaultQueries}
}

// TestSQL implements pool.Dialect.
func (r *Resolver) TestSQL() string {
	if q, ok := r.queries[r.driver]; ok {
		return q
	}
	return "SELECT 1"
}
