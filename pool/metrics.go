package pool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an optional Prometheus-backed sink for pool observability.
// The spec treats metrics as a side-effect sink with no contract beyond
// "messages may be emitted"; this is the concrete instance a caller may
// plug in via WithMetrics. Unlike the teacher corpus's package-level
// promauto vars, instances here are per-Pool so a process can host more
// than one named pool without metric name collisions.
type Metrics struct {
	idle    prometheus.Gauge
	total   prometheus.Gauge
	active  prometheus.Gauge
	acquire prometheus.Counter
	timeout prometheus.Counter
	evicted prometheus.Counter
	forced  prometheus.Counter
	grown   prometheus.Counter
	wait    prometheus.Histogram
}

// NewMetrics builds a Metrics instance labeled with name (e.g. the
// logical pool/datasource name) and registers its collectors with reg.
// Pass prometheus.NewRegistry() for test isolation, or a shared registry
// in production; NewMetrics never touches the global default registerer
// implicitly.
func NewMetrics(reg prometheus.Registerer, name string) *Metrics {
	labels := prometheus.Labels{"pool": name}
	m := &Metrics{
		idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "rexdb_pool_idle_connections",
			Help:        "Number of idle connections currently available.",
			ConstLabels: labels,
		}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "rexdb_pool_total_connections",
			Help:        "Number of live connections (idle + checked out).",
			ConstLabels: labels,
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "rexdb_pool_active_connections",
			Help:        "Number of connections currently checked out.",
			ConstLabels: labels,
		}),
		acquire: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rexdb_pool_acquires_total",
			Help:        "Total successful Acquire calls.",
			ConstLabels: labels,
		}),
		timeout: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rexdb_pool_acquire_timeouts_total",
			Help:        "Total Acquire calls that failed with PoolExhausted.",
			ConstLabels: labels,
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rexdb_pool_evictions_total",
			Help:        "Total connections evicted for age or idle timeout.",
			ConstLabels: labels,
		}),
		forced: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rexdb_pool_force_closes_total",
			Help:        "Total connections terminated after a fatal transport error.",
			ConstLabels: labels,
		}),
		grown: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rexdb_pool_grown_total",
			Help:        "Total connections successfully added to the pool (initial fill and growth).",
			ConstLabels: labels,
		}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "rexdb_pool_acquire_wait_seconds",
			Help:        "Time spent waiting inside Acquire.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
	}
	reg.MustRegister(m.idle, m.total, m.active, m.acquire, m.timeout, m.evicted, m.forced, m.grown, m.wait)
	return m
}

func (m *Metrics) observeAcquire(wait time.Duration) {
	if m == nil {
		return
	}
	m.acquire.Inc()
	m.wait.Observe(wait.Seconds())
}

func (m *Metrics) observeTimeout() {
	if m == nil {
		return
	}
	m.timeout.Inc()
}

func (m *Metrics) observeEviction() {
	if m == nil {
		return
	}
	m.evicted.Inc()
}

func (m *Metrics) observeForceClose() {
	if m == nil {
		return
	}
	m.forced.Inc()
}

func (m *Metrics) observeGrown() {
	if m == nil {
		return
	}
	m.grown.Inc()
}

func (m *Metrics) setGauges(idle, total, max int64) {
	if m == nil {
		return
	}
	m.idle.Set(float64(idle))
	m.total.Set(float64(total))
	active := total - idle
	if active < 0 {
		active = 0
	}
	m.active.Set(float64(active))
}
