package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"todo-api/api"
	"todo-api/config"
	"todo-api/domain"
	"todo-api/storage"
	"todo-api/telemetry"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, cfg config.Config) error {
	logger := cfg.NewLogger()

	tp := telemetry.NewTracerProvider(logger)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("tracer shutdown")
		}
	}()

	st, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	var (
		tasks   domain.TaskStore = st
		limiter api.WindowStore  = api.NewMemoryWindowStore(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		rc      *redis.Client
	)
	if cfg.RedisURL != "" {
		rc, err = storage.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		if cfg.CacheTTL > 0 {
			tasks = storage.NewCache(st, rc, cfg.CacheTTL, logger)
		}
		limiter = api.NewRedisWindowStore(rc, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)
	}

	opts := []domain.Option{
		domain.WithLogger(logger),
		domain.WithTracer(tp.Tracer("todo-api/domain")),
	}
	if cfg.Events.Enabled() {
		queue, err := storage.NewEventQueue(cfg.Events.ConnectionString, cfg.Events.Queue)
		if err != nil {
			return err
		}
		if err := queue.Ensure(ctx); err != nil {
			logger.WithError(err).WithField("queue", cfg.Events.Queue).Warn("event queue not ready")
		}
		opts = append(opts, domain.WithPublisher(queue))
	}

	svc := domain.NewTaskService(tasks, opts...)
	e := api.NewServer(svc, api.ServerOptions{
		Logger:      logger,
		RateLimiter: limiter,
		CORSOrigins: cfg.CORSOrigins,
		BodyLimit:   cfg.BodyLimit,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"addr":     cfg.Addr(),
			"database": storageKind(cfg.DatabaseURL),
			"redis":    rc != nil,
			"events":   cfg.Events.Enabled(),
		}).Info("todo-api listening")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func migrate(ctx context.Context, cfg config.Config) error {
	logger := cfg.NewLogger()
	st, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	logger.WithField("database", storageKind(cfg.DatabaseURL)).Info("schema up to date")
	return nil
}

func storageKind(url string) string {
	if storage.IsPostgres(url) {
		return "postgres"
	}
	return "sqlite"
}
