package pool

import "context"

// ConnectionFactory opens a raw connection using driver, URL, and
// credentials baked into the concrete implementation at construction.
// The pool wraps any Open failure in *DriverError itself, and tryGrow
// treats it as a transient, retryable event.
type ConnectionFactory interface {
	Open(ctx context.Context) (RawConn, error)
}
