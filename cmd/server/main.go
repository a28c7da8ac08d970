package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spectramin/orescout/internal/api"
	"github.com/spectramin/orescout/internal/cache"
	"github.com/spectramin/orescout/internal/config"
	"github.com/spectramin/orescout/internal/evaluator"
	"github.com/spectramin/orescout/internal/metrics"
	"github.com/spectramin/orescout/internal/scan"
	"github.com/spectramin/orescout/internal/store"
)

const migrationsDir = "migrations"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogger(cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.RunMigrations(cfg.Database.URL, migrationsDir); err != nil {
		return err
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.NewPostgresStore(pool)

	ca, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer ca.Close()
	if err := ca.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	eval, err := evaluator.NewEvaluator(cfg.Evaluator)
	if err != nil {
		return err
	}

	m := metrics.NewScanMetrics()
	svc := scan.NewService(st, ca, cfg.Scan.GridBoxKm)
	sched := scan.NewScheduler(st, ca, eval, m,
		cfg.Scheduler.TickInterval, cfg.Scheduler.BatchSize, cfg.Scan.GridBoxKm)

	go sched.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(cfg, svc, st, ca, m),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func setupLogger(env string) {
	level := slog.LevelInfo
	if env == "development" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
