package pool

import (
	"fmt"
	"log/slog"
	"time"
)

// Config is the pool's immutable-after-construction configuration record.
// It mirrors the recognised key set in the spec's configuration table;
// ConfigFromMap binds that table explicitly instead of through reflection.
type Config struct {
	DriverName string
	URL        string
	Username   string
	Password   string

	InitSize  int
	MinSize   int
	MaxSize   int
	Increment int
	Retries   int

	RetryInterval  time.Duration
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration // 0 disables idle eviction
	MaxLifetime    time.Duration // 0 disables lifetime eviction

	TestConnection bool
	TestSQL        string
	TestTimeout    time.Duration

	JanitorPeriod time.Duration
}

// withDefaults fills in the zero-value defaults the spec assigns, notably
// JanitorPeriod's 30s default.
func (c Config) withDefaults() Config {
	if c.JanitorPeriod == 0 {
		c.JanitorPeriod = 30 * time.Second
	}
	if c.Increment == 0 {
		c.Increment = 1
	}
	return c
}

// Validate checks the invariants spec.md §3 places on Config.
func (c Config) Validate() error {
	if c.DriverName == "" {
		return fmt.Errorf("%w: driverClassName", ErrConfigMissing)
	}
	if c.URL == "" {
		return fmt.Errorf("%w: url", ErrConfigMissing)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username", ErrConfigMissing)
	}
	if c.InitSize < 0 || c.MinSize < 0 || c.MaxSize < 0 {
		return fmt.Errorf("%w: sizes must be non-negative", ErrConfigInvalid)
	}
	if c.InitSize > c.MinSize {
		return fmt.Errorf("%w: initSize (%d) > minSize (%d)", ErrConfigInvalid, c.InitSize, c.MinSize)
	}
	if c.MinSize > c.MaxSize {
		return fmt.Errorf("%w: minSize (%d) > maxSize (%d)", ErrConfigInvalid, c.MinSize, c.MaxSize)
	}
	if c.Increment < 1 {
		return fmt.Errorf("%w: increment must be >= 1", ErrConfigInvalid)
	}
	if c.RetryInterval < 0 || c.AcquireTimeout < 0 || c.IdleTimeout < 0 ||
		c.MaxLifetime < 0 || c.TestTimeout < 0 || c.JanitorPeriod < 0 {
		return fmt.Errorf("%w: timeouts must be non-negative", ErrConfigInvalid)
	}
	return nil
}

// ConfigFromMap binds the configuration keys recognised by the pool
// (spec.md §6) explicitly, rather than by reflecting over field names.
// Unknown keys are logged and ignored. Numeric/duration values are parsed
// with fmt.Sscan-friendly helpers; malformed values return ErrConfigInvalid.
func ConfigFromMap(m map[string]string, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var cfg Config
	known := map[string]func(string) error{
		"driverClassName": func(v string) error { cfg.DriverName = v; return nil },
		"url":             func(v string) error { cfg.URL = v; return nil },
		"username":        func(v string) error { cfg.Username = v; return nil },
		"password":        func(v string) error { cfg.Password = v; return nil },
		"initSize":        func(v string) error { return scanInt(v, &cfg.InitSize) },
		"minSize":         func(v string) error { return scanInt(v, &cfg.MinSize) },
		"maxSize":         func(v string) error { return scanInt(v, &cfg.MaxSize) },
		"increment":       func(v string) error { return scanInt(v, &cfg.Increment) },
		"retries":         func(v string) error { return scanInt(v, &cfg.Retries) },
		"retryInterval":        func(v string) error { return scanMillis(v, &cfg.RetryInterval) },
		"getConnectionTimeout": func(v string) error { return scanMillis(v, &cfg.AcquireTimeout) },
		"inactiveTimeout":      func(v string) error { return scanMillis(v, &cfg.IdleTimeout) },
		"maxLifetime":          func(v string) error { return scanMillis(v, &cfg.MaxLifetime) },
		"testTimeout":          func(v string) error { return scanMillis(v, &cfg.TestTimeout) },
		"testConnection": func(v string) error {
			cfg.TestConnection = v == "true" || v == "1"
			return nil
		},
		"testSql": func(v string) error { cfg.TestSQL = v; return nil },
	}

	for k, v := range m {
		set, ok := known[k]
		if !ok {
			logger.Warn("pool: ignoring unknown configuration key", "key", k)
			continue
		}
		if err := set(v); err != nil {
			return Config{}, fmt.Errorf("%w: key %q: %v", ErrConfigInvalid, k, err)
		}
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func scanInt(s string, dst *int) error {
	_, err := fmt.Sscanf(s, "%d", dst)
	return err
}

func scanMillis(s string, dst *time.Duration) error {
	var ms int64
	if _, err := fmt.Sscanf(s, "%d", &ms); err != nil {
		return err
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}
