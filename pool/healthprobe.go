package pool

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dialect supplies a per-vendor liveness-probe query. It is consulted at
// most once per pool, lazily, and only when Config.TestSQL is empty.
type Dialect interface {
	TestSQL() string
}

// HealthProbe validates a raw connection before it is admitted to the
// idle queue. Check must never panic and must not retain raw beyond the
// call.
type HealthProbe interface {
	Check(ctx context.Context, raw RawConn) bool
}

// defaultHealthProbe implements HealthProbe per spec.md §4.4: a constant
// true when TestConnection is disabled, otherwise a Ping (preferred) or a
// one-shot query against a cached test SQL string.
type defaultHealthProbe struct {
	enabled     bool
	timeout     time.Duration
	testSQL     string
	dialect     Dialect
	resolveOnce sync.Once
	logger      *slog.Logger
}

func newHealthProbe(cfg Config, dialect Dialect, logger *slog.Logger) *defaultHealthProbe {
	return &defaultHealthProbe{
		enabled: cfg.TestConnection,
		timeout: cfg.TestTimeout,
		testSQL: cfg.TestSQL,
		dialect: dialect,
		logger:  logger,
	}
}

func (p *defaultHealthProbe) resolveTestSQL() string {
	p.resolveOnce.Do(func() {
		if p.testSQL == "" && p.dialect != nil {
			p.testSQL = p.dialect.TestSQL()
		}
	})
	return p.testSQL
}

func (p *defaultHealthProbe) Check(ctx context.Context, raw RawConn) bool {
	if !p.enabled {
		return true
	}

	probeCtx := ctx
	var cancel context.CancelFunc
	if p.timeout > 0 {
		probeCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := raw.Ping(probeCtx); err == nil {
		return true
	} else if sql := p.resolveTestSQL(); sql != "" {
		rows, err := raw.QueryContext(probeCtx, sql)
		if err != nil {
			p.logger.Debug("pool: health probe query failed", "error", err)
			return false
		}
		_ = rows.Close(probeCtx)
		return true
	} else {
		p.logger.Debug("pool: health probe ping failed and no test SQL configured", "error", err)
		return false
	}
}
