// Command pooldemo exercises a rexdb connection pool against a SQLite
// database: it logs one acquire/release cycle with the pool stats before
// and after it, then waits for a signal and shuts the pool down.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mxb1210/rexdb/dialect"
	"github.com/mxb1210/rexdb/pool"
	"github.com/mxb1210/rexdb/sqliteconn"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := pool.Config{
		DriverName:     "sqlite",
		URL:            ":memory:",
		Username:       "demo",
		InitSize:       2,
		MinSize:        2,
		MaxSize:        8,
		Increment:      2,
		Retries:        2,
		RetryInterval:  50 * time.Millisecond,
		AcquireTimeout: 2 * time.Second,
		IdleTimeout:    time.Minute,
		MaxLifetime:    10 * time.Minute,
		TestConnection: true,
		JanitorPeriod:  5 * time.Second,
	}

	factory := sqliteconn.NewFactory(cfg)
	p, err := pool.New(cfg, factory,
		pool.WithLogger(logger),
		pool.WithDialect(dialect.NewResolver(cfg.DriverName)),
	)
	if err != nil {
		logger.Error("failed to start pool", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("pool started", "stats", p.Stats())

	proxy, err := p.Acquire(ctx)
	if err != nil {
		logger.Error("acquire failed", "error", err)
		os.Exit(1)
	}
	logger.Info("acquired connection", "proxy", proxy.ID())

	if _, err := proxy.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS demo (id INTEGER PRIMARY KEY)"); err != nil {
		logger.Warn("exec failed", "error", err)
	}

	if err := proxy.Close(ctx); err != nil {
		logger.Warn("close failed", "error", err)
	}
	logger.Info("released connection", "stats", p.Stats())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
