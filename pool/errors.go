package pool

import (
	"errors"
	"fmt"
)

// Sentinel errors usable with errors.Is.
var (
	// ErrConfigMissing is returned by ConfigFromMap/Config.Validate when a
	// required key (driverClassName, url, username) is absent.
	ErrConfigMissing = errors.New("pool: required configuration missing")

	// ErrConfigInvalid is returned when a present configuration value
	// violates an invariant (e.g. initSize > minSize).
	ErrConfigInvalid = errors.New("pool: invalid configuration")

	// ErrConnectionClosed is returned by a proxy method invoked after the
	// proxy has been logically closed.
	ErrConnectionClosed = errors.New("pool: connection closed")

	// ErrPoolClosed is returned by Acquire once Shutdown has been called.
	ErrPoolClosed = errors.New("pool: pool is shut down")

	// errHealthCheckFailed records why addOne gave up on a particular
	// attempt when the factory succeeded but the probe rejected the
	// connection. Diagnostic only; never returned to an Acquire caller
	// directly.
	errHealthCheckFailed = errors.New("pool: health probe rejected new connection")

	// errIdleQueueFull indicates the idle channel rejected a send that
	// growMu's accounting should have guaranteed would succeed — an
	// invariant-violation indicator, logged rather than panicked on.
	errIdleQueueFull = errors.New("pool: idle queue unexpectedly full")

	// errPoolClosedDuringGrow is a diagnostic-only error recorded when
	// Shutdown races a concurrent tryGrow attempt.
	errPoolClosedDuringGrow = errors.New("pool: shut down during growth attempt")
)

// DriverError wraps a failure from ConnectionFactory.Open. It is handled
// entirely inside tryGrow: retried up to Config.Retries times, then
// recorded as latestErr. It never escapes to an Acquire caller directly —
// callers only see it indirectly, folded into a PoolExhaustedError.
type DriverError struct {
	Driver string
	Err    error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("pool: driver %q: open failed: %v", e.Driver, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// PoolExhaustedError is raised to an Acquire caller when no idle
// connection became available and the pool could not grow before the
// deadline. It carries the counters and latest construction error needed
// for diagnosis (spec.md §4.1 step 3, §7).
type PoolExhaustedError struct {
	Idle      int64
	Total     int64
	Max       int
	LatestErr error
}

func (e *PoolExhaustedError) Error() string {
	if e.LatestErr != nil {
		return fmt.Sprintf("pool: exhausted: idle=%d/%d total=%d: last error: %v", e.Idle, e.Max, e.Total, e.LatestErr)
	}
	return fmt.Sprintf("pool: exhausted: idle=%d/%d total=%d", e.Idle, e.Max, e.Total)
}

func (e *PoolExhaustedError) Unwrap() error { return e.LatestErr }

// classifyErr inspects err for a SQL state and reports whether it falls
// in the terminal (connection-fatal) class: any state beginning with "08"
// (connection exception), or one of 57P01/57P02/57P03/01002.
func classifyErr(err error) (terminal bool) {
	var sse SQLStateError
	if !errors.As(err, &sse) {
		return false
	}
	state := sse.SQLState()
	if len(state) >= 2 && state[:2] == "08" {
		return true
	}
	switch state {
	case "57P01", "57P02", "57P03", "01002":
		return true
	}
	return false
}
