package pool

import (
	"context"
	"time"
)

// tryGrow implements spec.md §4.1.1: it is serialized by growMu so
// concurrently exhausted acquirers never collectively push total past
// MaxSize. It adds up to Config.Increment new proxies, each via addOne,
// and never returns an error to its caller — growth is best-effort;
// exhaustion is only ever recorded in latestErr.
func (p *Pool) tryGrow(ctx context.Context) {
	if p.closed.Load() {
		return
	}
	p.growMu.Lock()
	defer p.growMu.Unlock()

	for i := 0; i < p.cfg.Increment; i++ {
		if p.closed.Load() {
			return
		}
		if p.total.Load() >= int64(p.cfg.MaxSize) {
			return
		}
		if err := p.addOne(ctx); err != nil {
			p.logger.Debug("pool: tryGrow attempt failed", "error", err)
			return
		}
	}
}

// addOne opens, validates, and admits a single new connection, retrying
// up to Config.Retries times with Config.RetryInterval between attempts.
// total is incremented before the proxy is published to idle, and
// idleCount only after the proxy is actually enqueued, satisfying the
// happens-before ordering spec.md §5 requires.
func (p *Pool) addOne(ctx context.Context) error {
	for attempt := 0; attempt <= p.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.cfg.RetryInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		raw, err := p.factory.Open(ctx)
		if err != nil {
			de := &DriverError{Driver: p.cfg.DriverName, Err: err}
			p.setLatestErr(de)
			continue
		}

		if !p.probe.Check(ctx, raw) {
			_ = raw.Close(ctx)
			p.setLatestErr(errHealthCheckFailed)
			continue
		}

		proxy := newConnectionProxy(raw, p)

		if p.closed.Load() {
			proxy.terminate(ctx)
			return errPoolClosedDuringGrow
		}

		p.total.Add(1)
		p.live.Store(proxy.id, proxy)

		select {
		case p.idle <- proxy:
			p.idleCount.Add(1)
			p.metrics.observeGrown()
			p.publishGauges()
			return nil
		default:
			// Should not happen: idle has capacity MaxSize and total was
			// checked under growMu, but guard against the invariant
			// violation defensively rather than leaking the connection.
			p.total.Add(-1)
			p.live.Delete(proxy.id)
			proxy.terminate(ctx)
			return errIdleQueueFull
		}
	}

	return p.loadLatestErr()
}

func (p *Pool) setLatestErr(err error) {
	p.latestErr.Store(&err)
}

func (p *Pool) loadLatestErr() error {
	if lp := p.latestErr.Load(); lp != nil {
		return *lp
	}
	return nil
}
