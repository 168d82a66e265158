// Package pool implements a concurrent cache of long-lived database
// connections. It amortizes the cost of opening a new transport and
// authentication handshake across many short logical uses, while
// enforcing bounds on resource consumption, liveness, and age.
//
// The pool hands out *ConnectionProxy values, which behave like real
// connections but intercept Close so the connection returns to the pool
// instead of terminating. A background janitor expires idle and aged
// connections on a fixed period and refills the pool back to its floor.
package pool
