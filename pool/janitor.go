package pool

import (
	"context"
	"time"
)

// runJanitor drives the background sweep on a fixed period. It is started
// as a goroutine from New and stopped from Shutdown.
func (p *Pool) runJanitor() {
	defer close(p.janitorDone)

	ticker := time.NewTicker(p.cfg.JanitorPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweep()
		case <-p.janitorStop:
			return
		}
	}
}

// sweep implements spec.md §4.3: it snapshots the current idle count and
// examines exactly that many entries, evicting expired ones and
// re-enqueuing the rest, then tops the pool up to MinSize if needed. Work
// is bounded per tick so foreground acquirers are never starved, and a
// re-enqueued proxy may only be examined again on the following tick.
func (p *Pool) sweep() {
	n := p.idleCount.Load()
	now := time.Now()

	for i := int64(0); i < n; i++ {
		var proxy *ConnectionProxy
		select {
		case proxy = <-p.idle:
			p.idleCount.Add(-1)
		default:
			break
		}
		if proxy == nil {
			break
		}

		expired := (p.cfg.IdleTimeout > 0 && now.Sub(proxy.LastAccess()) > p.cfg.IdleTimeout) ||
			(p.cfg.MaxLifetime > 0 && now.Sub(proxy.creationTime) > p.cfg.MaxLifetime)

		if expired {
			p.terminateProxy(proxy)
			p.metrics.observeEviction()
			continue
		}

		p.idleCount.Add(1)
		select {
		case p.idle <- proxy:
		default:
			// Lost the race against a concurrent grow; terminate rather
			// than block the janitor.
			p.idleCount.Add(-1)
			p.terminateProxy(proxy)
		}
	}

	if p.total.Load() < int64(p.cfg.MinSize) {
		p.tryGrow(context.Background())
	}
}

// Shutdown marks the pool closed (further Acquire calls fail fast with
// ErrPoolClosed), stops the janitor, drains and terminates the idle
// queue, and marks every currently checked-out proxy force-closed so it
// terminates on its own next Close instead of re-entering the idle
// queue. It does not block waiting for checked-out proxies to return —
// the pool is a non-owning collaborator of proxies it handed out, and
// outlives them only in the sense that it remains valid to call release
// on (SPEC_FULL.md §11.2).
//
// p.idle is deliberately never closed: a concurrent release or addOne
// that read closed==false just before this CAS could still be about to
// send on p.idle, and closing the channel out from under that send
// would panic the sending goroutine with no recover anywhere in the
// tree. The closed flag alone is what gates every send (release checks
// it before enqueueing; addOne/tryGrow re-check it after opening the
// connection), so leaving the channel open and relying on that flag —
// plus ShutdownIdle's drain — is sufficient and removes the race
// entirely instead of narrowing it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(p.janitorStop)
	select {
	case <-p.janitorDone:
	case <-ctx.Done():
	}

	p.ShutdownIdle()

	p.live.Range(func(_, v any) bool {
		proxy := v.(*ConnectionProxy)
		proxy.forceClosed.Store(true)
		return true
	})

	return nil
}
