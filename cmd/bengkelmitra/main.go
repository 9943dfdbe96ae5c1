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

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/bengkelmitra/bengkelmitra/internal/app"
	"github.com/bengkelmitra/bengkelmitra/internal/catalog"
	"github.com/bengkelmitra/bengkelmitra/internal/commission"
	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/observability"
	"github.com/bengkelmitra/bengkelmitra/internal/platform/db"
	"github.com/bengkelmitra/bengkelmitra/internal/reports"
	"github.com/bengkelmitra/bengkelmitra/internal/servicejob"
	"github.com/bengkelmitra/bengkelmitra/internal/settings"
	"github.com/bengkelmitra/bengkelmitra/internal/stock"
	"github.com/bengkelmitra/bengkelmitra/internal/users"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

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

	if err := runMigrations(cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, logger)
	if cfg.BootstrapPassword != "" {
		if err := usersService.Bootstrap(ctx, cfg.BootstrapOwner, cfg.BootstrapPassword); err != nil {
			logger.Error("bootstrap owner", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ledgerRepo := ledger.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)

	commissionCache := commission.NewRedisCache(redisClient, cfg.CommissionCacheTTL)
	commissionRepo := commission.NewPgRepository(pool)
	commissionService := commission.NewService(commissionRepo, ledgerRepo, usersRepo, commissionCache, commission.Config{
		TargetAdmin:   cfg.CommissionTargetAdmin,
		TargetMekanik: cfg.CommissionTargetMekanik,
		Reward:        cfg.CommissionReward,
	}, logger, metrics)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, logger, commissionService, metrics)

	jobRepo := servicejob.NewRepository(pool)
	jobService := servicejob.NewService(jobRepo, logger, commissionService, metrics)

	reportService := reports.NewService(ledgerRepo, redisClient, cfg.ReportCacheTTL, logger)
	settingsRepo := settings.NewRepository(pool)

	usersHandler := users.NewHandler(logger, usersService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		UsersHandler:      usersHandler,
		UsersRepo:         usersRepo,
		CatalogHandler:    catalog.NewHandler(logger, catalogRepo),
		StockHandler:      stock.NewHandler(logger, stockService),
		LedgerHandler:     ledger.NewHandler(logger, ledgerRepo),
		ServiceJobHandler: servicejob.NewHandler(logger, jobService),
		CommissionHandler: commission.NewHandler(logger, commissionService),
		ReportsHandler:    reports.NewHandler(logger, reportService),
		SettingsHandler:   settings.NewHandler(logger, settingsRepo),
		Metrics:           metrics,
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
}
