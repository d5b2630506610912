package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/PPA-BE/Orders-At-Peak/internal/app"
	jobmetrics "github.com/PPA-BE/Orders-At-Peak/internal/jobs"
	"github.com/PPA-BE/Orders-At-Peak/internal/platform/cache"
	"github.com/PPA-BE/Orders-At-Peak/internal/platform/db"
	"github.com/PPA-BE/Orders-At-Peak/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis options", slog.Any("error", err))
		os.Exit(1)
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	services, err := app.NewServices(app.ServiceDeps{
		Config: cfg,
		Logger: logger,
		Pool:   pool,
		Redis:  redisClient,
	})
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := jobmetrics.NewMetrics(nil)
	exportJob := jobs.NewExportJob(services.Export, logger, metrics)
	notifyJob := jobs.NewPaymentNotifyJob(services.Purchasing, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cache.QueueOpt(redisOpts),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExport, Handler: exportJob.Handle},
			{Type: jobs.TaskPaymentNotify, Handler: notifyJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
