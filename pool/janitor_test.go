package pool

import (
	"context"
	"testing"
	"time"
)

// Scenario 5 (spec.md §8): janitor evicts idle-expired connections.
func TestJanitor_EvictsIdleExpired(t *testing.T) {
	cfg := testConfig(func(c *Config) {
		c.InitSize = 0
		c.MinSize = 0
		c.MaxSize = 2
		c.Increment = 2
		c.IdleTimeout = 100 * time.Millisecond
		c.JanitorPeriod = 50 * time.Millisecond
	})
	p := mustNewPool(t, cfg, &fakeFactory{})

	// InitSize may not exceed MinSize, so the two idle connections are
	// added by one growth step instead of the initial fill.
	p.tryGrow(context.Background())

	if got := p.IdleConnections(); got != 2 {
		t.Fatalf("initial idle = %d, want 2", got)
	}

	time.Sleep(300 * time.Millisecond)

	if got := p.IdleConnections(); got != 0 {
		t.Fatalf("idle after 300ms of a 100ms idle timeout = %d, want 0", got)
	}
}

// Scenario 6 (spec.md §8): janitor refills to MinSize.
func TestJanitor_RefillsToMinSize(t *testing.T) {
	cfg := testConfig(func(c *Config) {
		c.InitSize = 0
		c.MinSize = 2
		c.MaxSize = 4
		c.JanitorPeriod = 50 * time.Millisecond
	})
	p := mustNewPool(t, cfg, &fakeFactory{})

	if got := p.TotalConnections(); got != 0 {
		t.Fatalf("initial total = %d, want 0", got)
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if p.TotalConnections() >= cfg.MinSize {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := p.TotalConnections(); got < cfg.MinSize {
		t.Fatalf("total after 200ms = %d, want >= %d", got, cfg.MinSize)
	}
}

func TestJanitor_SweepBoundedPerTick(t *testing.T) {
	cfg := testConfig(func(c *Config) {
		c.InitSize = 3
		c.MinSize = 3
		c.MaxSize = 3
		c.JanitorPeriod = time.Hour // we call sweep directly
	})
	p := mustNewPool(t, cfg, &fakeFactory{})

	if got := p.IdleConnections(); got != 3 {
		t.Fatalf("initial idle = %d, want 3", got)
	}

	// No timeouts configured, so a sweep should re-enqueue everything.
	p.sweep()

	if got := p.IdleConnections(); got != 3 {
		t.Fatalf("idle after no-op sweep = %d, want 3", got)
	}
}
