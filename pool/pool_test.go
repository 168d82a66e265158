package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func testConfig(overrides func(*Config)) Config {
	cfg := Config{
		DriverName:     "fake",
		URL:            "fake://local",
		Username:       "tester",
		InitSize:       0,
		MinSize:        0,
		MaxSize:        4,
		Increment:      1,
		Retries:        0,
		RetryInterval:  time.Millisecond,
		AcquireTimeout: time.Second,
		JanitorPeriod:  time.Hour, // disabled for most tests; overridden where needed
	}
	if overrides != nil {
		overrides(&cfg)
	}
	return cfg
}

func mustNewPool(t *testing.T, cfg Config, factory ConnectionFactory) *Pool {
	t.Helper()
	p, err := New(cfg, factory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

// Scenario 1 (spec.md §8): happy path.
func TestPool_HappyPath(t *testing.T) {
	cfg := testConfig(func(c *Config) {
		c.InitSize = 2
		c.MinSize = 2
		c.MaxSize = 4
		c.AcquireTimeout = 5 * time.Second
	})
	p := mustNewPool(t, cfg, &fakeFactory{})

	if got := p.TotalConnections(); got != 2 {
		t.Fatalf("after construction: total = %d, want 2", got)
	}
	if got := p.IdleConnections(); got != 2 {
		t.Fatalf("after construction: idle = %d, want 2", got)
	}

	ctx := context.Background()
	var acquired []*ConnectionProxy
	for i := 0; i < 3; i++ {
		proxy, err := p.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire #%d: %v", i, err)
		}
		acquired = append(acquired, proxy)
	}

	if got := p.TotalConnections(); got != 3 {
		t.Fatalf("after 3 acquires: total = %d, want 3", got)
	}
	if got := p.IdleConnections(); got != 0 {
		t.Fatalf("after 3 acquires: idle = %d, want 0", got)
	}
	if got := p.ActiveConnections(); got != 3 {
		t.Fatalf("after 3 acquires: active = %d, want 3", got)
	}

	for _, proxy := range acquired {
		if err := proxy.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	if got := p.TotalConnections(); got != 3 {
		t.Fatalf("after releasing all: total = %d, want 3", got)
	}
	if got := p.IdleConnections(); got != 3 {
		t.Fatalf("after releasing all: idle = %d, want 3", got)
	}
}

// Scenario 2 (spec.md §8): acquire timeout.
func TestPool_AcquireTimeout(t *testing.T) {
	cfg := testConfig(func(c *Config) {
		c.MaxSize = 1
		c.AcquireTimeout = 100 * time.Millisecond
	})
	p := mustNewPool(t, cfg, &fakeFactory{})

	ctx := context.Background()
	first, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Close(ctx)

	start := time.Now()
	_, err = p.Acquire(ctx)
	elapsed := time.Since(start)

	var exhausted *PoolExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("second Acquire error = %v, want *PoolExhaustedError", err)
	}
	if exhausted.Idle != 0 || exhausted.Max != 1 {
		t.Fatalf("exhausted error = %+v, want idle=0 max=1", exhausted)
	}
	if elapsed < 70*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Fatalf("timeout took %v, want ~100ms +/- 30ms (allowing scheduler slack)", elapsed)
	}
}

// Scenario 3 (spec.md §8): max lifetime enforced on checkout.
func TestPool_MaxLifetimeOnCheckout(t *testing.T) {
	cfg := testConfig(func(c *Config) {
		c.MaxLifetime = 50 * time.Millisecond
		c.MaxSize = 2
		c.AcquireTimeout = time.Second
	})
	p := mustNewPool(t, cfg, &fakeFactory{})

	ctx := context.Background()
	first, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	firstCreated := first.CreationTime()
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	second, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	defer second.Close(ctx)

	if !second.CreationTime().After(firstCreated) {
		t.Fatalf("expected a fresh connection after lifetime expiry, got creationTime %v (was %v)", second.CreationTime(), firstCreated)
	}
}

// Scenario 4 (spec.md §8): a fatal SQL state forces the proxy closed.
func TestPool_FatalStateForcesClose(t *testing.T) {
	cfg := testConfig(func(c *Config) { c.MaxSize = 2 })
	p := mustNewPool(t, cfg, &fakeFactory{})

	ctx := context.Background()
	proxy, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	totalBefore := p.TotalConnections()

	// Simulate a driver operation that fails with SQL state "08003"
	// (connection does not exist), the path PrepareContext/QueryContext
	// drive through checkException on a real fatal error.
	_ = proxy.checkException(&fakeSQLStateError{state: "08003", msg: "connection does not exist"})

	if !proxy.IsForceClosed() {
		t.Fatalf("expected proxy to be force-closed after a fatal SQL state")
	}

	if err := proxy.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := p.TotalConnections(); got != totalBefore-1 {
		t.Fatalf("total after releasing a force-closed proxy = %d, want %d", got, totalBefore-1)
	}
	if got := p.IdleConnections(); got != 0 {
		t.Fatalf("force-closed proxy must never re-enter idle, idle = %d", got)
	}
}

// Idempotence (spec.md §8): Close called twice triggers exactly one
// release.
func TestConnectionProxy_CloseIdempotent(t *testing.T) {
	cfg := testConfig(func(c *Config) { c.MaxSize = 2 })
	p := mustNewPool(t, cfg, &fakeFactory{})

	ctx := context.Background()
	proxy, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if err := proxy.Close(ctx); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	idleAfterFirst := p.IdleConnections()

	if err := proxy.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if got := p.IdleConnections(); got != idleAfterFirst {
		t.Fatalf("second Close changed idle count: %d -> %d", idleAfterFirst, got)
	}
}

// Bound (spec.md §8): N concurrent acquirers against an empty pool with
// a generous deadline all succeed, and the pool's total never ends above
// MaxSize.
func TestPool_ConcurrentAcquireBound(t *testing.T) {
	cfg := testConfig(func(c *Config) {
		c.MaxSize = 4
		c.AcquireTimeout = 2 * time.Second
	})
	p := mustNewPool(t, cfg, &fakeFactory{})

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := context.Background()
			proxy, err := p.Acquire(ctx)
			if err != nil {
				errs[i] = err
				return
			}
			time.Sleep(5 * time.Millisecond)
			errs[i] = proxy.Close(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
	}
	if got := p.TotalConnections(); got > cfg.MaxSize {
		t.Fatalf("total = %d, exceeds MaxSize %d", got, cfg.MaxSize)
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing driver",
			cfg:     Config{URL: "x", Username: "u", MaxSize: 1, Increment: 1},
			wantErr: ErrConfigMissing,
		},
		{
			name:    "init exceeds min",
			cfg:     Config{DriverName: "d", URL: "x", Username: "u", InitSize: 2, MinSize: 1, MaxSize: 2, Increment: 1},
			wantErr: ErrConfigInvalid,
		},
		{
			name:    "min exceeds max",
			cfg:     Config{DriverName: "d", URL: "x", Username: "u", MinSize: 3, MaxSize: 2, Increment: 1},
			wantErr: ErrConfigInvalid,
		},
		{
			name: "valid",
			cfg:  Config{DriverName: "d", URL: "x", Username: "u", MaxSize: 2, Increment: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want wrapping %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfigFromMap_UnknownKeyIgnored(t *testing.T) {
	m := map[string]string{
		"driverClassName": "fake",
		"url":             "fake://x",
		"username":        "u",
		"maxSize":         "3",
		"totallyBogusKey": "whatever",
	}
	cfg, err := ConfigFromMap(m, nil)
	if err != nil {
		t.Fatalf("ConfigFromMap: %v", err)
	}
	if cfg.MaxSize != 3 {
		t.Fatalf("MaxSize = %d, want 3", cfg.MaxSize)
	}
}

func TestConfigFromMap_MissingRequired(t *testing.T) {
	_, err := ConfigFromMap(map[string]string{"url": "x"}, nil)
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("err = %v, want ErrConfigMissing", err)
	}
}
