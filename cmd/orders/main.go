package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/PPA-BE/Orders-At-Peak/internal/app"
	"github.com/PPA-BE/Orders-At-Peak/internal/observability"
	"github.com/PPA-BE/Orders-At-Peak/internal/platform/cache"
	"github.com/PPA-BE/Orders-At-Peak/internal/platform/db"
	"github.com/PPA-BE/Orders-At-Peak/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisOpts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis options", slog.Any("error", err))
		os.Exit(1)
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Exports still render without the artifact store.
		logger.Warn("redis unavailable, export artifacts disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	queueOpt := cache.QueueOpt(redisOpts)
	jobClient := jobs.NewClient(queueOpt)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(queueOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	services, err := app.NewServices(app.ServiceDeps{
		Config:   cfg,
		Logger:   logger,
		Pool:     dbpool,
		Redis:    redisClient,
		Notifier: jobClient,
		Metrics:  metrics,
	})
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := services.Templates.Load(ctx); err != nil {
		logger.Warn("po template not loaded, exports will fail until it exists",
			slog.String("path", services.Templates.Path()), slog.Any("error", err))
	}

	router := app.NewRouter(services.Handlers(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		JobHandler: jobs.NewHandler(inspector, logger),
		Metrics:    metrics,
		Ready: func(r *http.Request) error {
			return dbpool.Ping(r.Context())
		},
	}))

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
