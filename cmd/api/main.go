package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tentera/tentera_api/internal/account"
	"github.com/tentera/tentera_api/internal/config"
	"github.com/tentera/tentera_api/internal/infra"
	"github.com/tentera/tentera_api/internal/logging"
	"github.com/tentera/tentera_api/internal/metrics"
	"github.com/tentera/tentera_api/internal/routes"
	"github.com/tentera/tentera_api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(cfg.LogLevel, cfg.LogFile)
	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
	logCloser.Close()
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()
	deps := routes.Deps{Cfg: cfg, Logger: logger, Metrics: metrics.NewCollector()}

	closers, err := connect(ctx, cfg, logger, &deps)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close", "error", err)
			}
		}
	}()
	if err != nil {
		return err
	}

	srv, err := server.New(deps)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("server listening", "address", cfg.Address(), "env", cfg.AppEnv, "driver", cfg.DatabaseDriver, "code_store", cfg.CodeStore)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server exited cleanly")
	return nil
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// connect opens the database and Redis handles the config asks for, runs
// schema migrations, and returns closers in opening order.
func connect(ctx context.Context, cfg config.Config, logger *slog.Logger, deps *routes.Deps) ([]io.Closer, error) {
	var closers []io.Closer

	switch {
	case cfg.DatabaseURL == "":
		// routes.Setup decides whether the in-memory repository is acceptable
	case cfg.DatabaseDriver == config.DriverPostgres:
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return closers, err
		}
		closers = append(closers, closeFunc(func() error { db.Close(); return nil }))
		if err := infra.MigratePostgres(ctx, db); err != nil {
			return closers, err
		}
		deps.DB = db
	case cfg.DatabaseDriver == config.DriverMySQL:
		db, err := infra.NewMySQL(ctx, cfg.DatabaseURL)
		if err != nil {
			return closers, err
		}
		closers = append(closers, closeFunc(func() error { return infra.CloseMySQL(db) }))
		if err := account.NewGormRepository(db).Migrate(ctx); err != nil {
			return closers, err
		}
		deps.MySQL = db
	}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return closers, err
		}
		closers = append(closers, cache)
		deps.Cache = cache
	} else if !cfg.IsDevelopment() {
		logger.Warn("REDIS_URL not set; idempotency keys are ignored")
	}

	return closers, nil
}
