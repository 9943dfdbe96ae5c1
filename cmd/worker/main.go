package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/bengkelmitra/bengkelmitra/internal/app"
	"github.com/bengkelmitra/bengkelmitra/internal/commission"
	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/platform/db"
	"github.com/bengkelmitra/bengkelmitra/internal/reports"
	"github.com/bengkelmitra/bengkelmitra/internal/users"
	"github.com/bengkelmitra/bengkelmitra/jobs"
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

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	usersRepo := users.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)

	commissionService := commission.NewService(
		commission.NewPgRepository(pool),
		ledgerRepo,
		usersRepo,
		commission.NewRedisCache(redisClient, cfg.CommissionCacheTTL),
		commission.Config{
			TargetAdmin:   cfg.CommissionTargetAdmin,
			TargetMekanik: cfg.CommissionTargetMekanik,
			Reward:        cfg.CommissionReward,
		},
		logger,
		nil,
	)
	reportService := reports.NewService(ledgerRepo, redisClient, cfg.ReportCacheTTL, logger)

	reportsJob := jobs.NewReportsRefreshJob(reportService, logger)
	warmJob := jobs.NewCommissionWarmJob(commissionService, usersRepo, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportsRefresh, Handler: reportsJob.Handle},
			{Type: jobs.TaskCommissionWarm, Handler: warmJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "5 0 * * *", Task: jobs.NewReportsRefreshTask()},
			{Spec: "*/30 * * * *", Task: jobs.NewCommissionWarmTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
