package pool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Pool is a bounded concurrent cache of ConnectionProxy values. Callers
// acquire a proxy, use it, and release it by calling proxy.Close; the
// pool itself is safe for use by many goroutines simultaneously.
type Pool struct {
	cfg     Config
	factory ConnectionFactory
	probe   HealthProbe
	dialect Dialect
	logger  *slog.Logger
	metrics *Metrics

	idle      chan *ConnectionProxy
	idleCount atomic.Int64
	total     atomic.Int64

	// live tracks every proxy the pool currently holds (idle or
	// checked out) by ID; terminated proxies are removed. It exists
	// purely so Shutdown can reach checked-out
	// proxies to mark them force-closed. It is not consulted on the
	// Acquire/Release hot path.
	live sync.Map // id string -> *ConnectionProxy

	growMu sync.Mutex

	latestErr atomic.Pointer[error]

	closed atomic.Bool

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// Option customizes Pool construction.
type Option func(*Pool)

// WithLogger injects a structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithMetrics injects a Prometheus-backed metrics sink. Metrics are
// disabled (no-op) when this option is not supplied.
func WithMetrics(m *Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// WithHealthProbe overrides the default health probe, primarily for
// tests.
func WithHealthProbe(h HealthProbe) Option {
	return func(p *Pool) { p.probe = h }
}

// WithDialect injects the per-vendor liveness-SQL collaborator used by
// the default health probe when Config.TestSQL is empty.
func WithDialect(d Dialect) Option {
	return func(p *Pool) { p.dialect = d }
}

// New constructs a Pool from cfg and factory, applying opts, then fills
// it to InitSize. Failing to reach InitSize is logged, not fatal (spec.md
// §4.1.1). The background janitor starts immediately.
func New(cfg Config, factory ConnectionFactory, opts ...Option) (*Pool, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:         cfg,
		factory:     factory,
		logger:      slog.Default(),
		idle:        make(chan *ConnectionProxy, cfg.MaxSize),
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}
	if p.probe == nil {
		p.probe = newHealthProbe(cfg, p.dialect, p.logger)
	}

	ctx := context.Background()
	for i := 0; i < cfg.InitSize; i++ {
		if err := p.addOne(ctx); err != nil {
			p.logger.Warn("pool: failed to reach initSize during construction", "attempted", i, "want", cfg.InitSize, "error", err)
			break
		}
	}

	go p.runJanitor()
	return p, nil
}

// Acquire implements spec.md §4.1: it waits up to ctx's deadline (or
// Config.AcquireTimeout if ctx carries none) for an idle connection,
// growing the pool best-effort when none is immediately available, and
// discarding any proxy that has exceeded MaxLifetime before returning it.
func (p *Pool) Acquire(ctx context.Context) (*ConnectionProxy, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	deadline, ok := ctx.Deadline()
	if !ok && p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
		deadline, _ = ctx.Deadline()
	}

	for {
		if p.idleCount.Load() == 0 {
			p.tryGrow(ctx)
		}

		var remaining time.Duration
		if !deadline.IsZero() {
			remaining = time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
		}

		var timer *time.Timer
		var timeoutCh <-chan time.Time
		if !deadline.IsZero() {
			timer = time.NewTimer(remaining)
			timeoutCh = timer.C
		}

		select {
		case proxy := <-p.idle:
			if timer != nil {
				timer.Stop()
			}
			p.idleCount.Add(-1)

			if p.cfg.MaxLifetime > 0 && time.Since(proxy.creationTime) > p.cfg.MaxLifetime {
				p.terminateProxy(proxy)
				p.metrics.observeEviction()
				continue
			}

			proxy.closed.Store(false)
			p.metrics.observeAcquire(time.Since(start))
			return proxy, nil

		case <-timeoutCh:
			p.metrics.observeTimeout()
			return nil, p.exhaustedError()

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.metrics.observeTimeout()
				return nil, p.exhaustedError()
			}
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) exhaustedError() *PoolExhaustedError {
	var latest error
	if lp := p.latestErr.Load(); lp != nil {
		latest = *lp
	}
	return &PoolExhaustedError{
		Idle:      p.idleCount.Load(),
		Total:     p.total.Load(),
		Max:       p.cfg.MaxSize,
		LatestErr: latest,
	}
}

// release implements spec.md §4.1's Release: force-closed proxies
// terminate and decrement total; otherwise the proxy's lastAccess is
// updated and it is enqueued without blocking. A full idle queue (an
// invariant-violation indicator — total would exceed MaxSize) terminates
// the proxy instead of blocking.
func (p *Pool) release(proxy *ConnectionProxy) {
	if proxy.forceClosed.Load() || p.closed.Load() {
		p.terminateProxy(proxy)
		return
	}

	proxy.lastAccess.Store(time.Now().UnixNano())
	p.idleCount.Add(1)

	select {
	case p.idle <- proxy:
	default:
		p.idleCount.Add(-1)
		p.terminateProxy(proxy)
	}
	p.publishGauges()
}

// Release is the exported form of release, for callers that hold a
// *ConnectionProxy directly. It is proxy.Close with a background context:
// child statements are unwound and the proxy is returned to the pool.
func (p *Pool) Release(proxy *ConnectionProxy) { _ = proxy.Close(context.Background()) }

// terminateProxy closes the raw connection and decrements total. It must
// be called for every proxy that will never re-enter the idle queue.
func (p *Pool) terminateProxy(proxy *ConnectionProxy) {
	proxy.terminate(context.Background())
	p.total.Add(-1)
	p.live.Delete(proxy.id)
	p.publishGauges()
}

func (p *Pool) publishGauges() {
	p.metrics.setGauges(p.idleCount.Load(), p.total.Load(), int64(p.cfg.MaxSize))
}

// ShutdownIdle drains the idle queue, terminating every proxy in it.
// Checked-out proxies are unaffected; see Shutdown for full-pool
// teardown semantics (SPEC_FULL.md §11).
func (p *Pool) ShutdownIdle() {
	for {
		select {
		case proxy := <-p.idle:
			p.idleCount.Add(-1)
			p.terminateProxy(proxy)
		default:
			return
		}
	}
}

// ActiveConnections returns min(MaxSize, total-idle), per spec.md §6.
func (p *Pool) ActiveConnections() int {
	active := int(p.total.Load() - p.idleCount.Load())
	if active > p.cfg.MaxSize {
		return p.cfg.MaxSize
	}
	if active < 0 {
		return 0
	}
	return active
}

// IdleConnections returns the current idle count.
func (p *Pool) IdleConnections() int { return int(p.idleCount.Load()) }

// TotalConnections returns the current total (idle + checked out) count.
func (p *Pool) TotalConnections() int { return int(p.total.Load()) }

// Stats is a point-in-time snapshot of pool counters (SPEC_FULL.md §13).
type Stats struct {
	Idle   int
	Total  int
	Active int
	Max    int
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Idle:   p.IdleConnections(),
		Total:  p.TotalConnections(),
		Active: p.ActiveConnections(),
		Max:    p.cfg.MaxSize,
	}
}
