// Package main is the entry point for the API server.
// It initializes all dependencies, starts the background jobs,
// sets up the HTTP server and shuts everything down on SIGINT/SIGTERM.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"turapay/internal/config"
	"turapay/internal/gateway"
	"turapay/internal/handlers"
	"turapay/internal/jobs"
	"turapay/internal/repositories"
	"turapay/internal/repositories/cache"
	"turapay/internal/routes"
	"turapay/internal/services/admin"
	"turapay/internal/services/auth"
	"turapay/internal/services/kyc"
	"turapay/internal/services/notification"
	"turapay/internal/services/payment"
	"turapay/internal/services/rates"
	"turapay/internal/services/reconciliation"
	"turapay/internal/services/settings"
	"turapay/internal/services/transfer"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	cfg := config.Load()

	db, err := repositories.InitDB(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis is optional: without it settings and rates are read from the
	// database and memory only.
	var (
		cacheSvc *cache.CacheService
		appCache cache.Cache
		pinger   handlers.Pinger
	)
	cacheSvc = repositories.NewCacheService(cfg.Redis)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cacheSvc.HealthCheck(pingCtx); err != nil {
		log.Printf("⚠️ Redis unavailable, continuing without cache: %v", err)
		_ = cacheSvc.Close()
		cacheSvc = nil
	} else {
		log.Println("✅ Redis connected")
		appCache = cacheSvc
		pinger = cacheSvc
	}
	cancelPing()

	userRepo := repositories.NewUserRepository(db)
	txRepo := repositories.NewTransactionRepository(db)
	settingRepo := repositories.NewSettingRepository(db)
	entries := repositories.NewReconciliationRepository(db)

	gw := gateway.NewLipilaClient(cfg.Lipila)
	if !gw.Configured() {
		log.Println("⚠️ LIPILA_API_KEY not set; collection and disbursement calls will fail")
	}
	notifier := notification.NewService(cfg)

	ratesSvc := rates.NewService(cfg.Rates, repositories.NewExchangeRateRepository(db), appCache)
	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	_ = ratesSvc.Refresh(startCtx)
	cancelStart()

	transfers := transfer.NewService(db, txRepo, userRepo, settingRepo, ratesSvc, cfg.Rates.LocalCurrency)
	authSvc := auth.NewService(userRepo, cfg.JWTSecret, cfg.RefreshSecret)

	worker := reconciliation.NewWorker(entries, txRepo, transfers, gw, notifier, reconciliation.Options{
		MaxAttempts: cfg.ReconcileMaxAttempts,
	})
	scheduler, err := jobs.InitializeScheduler(ratesSvc, worker, jobs.Schedules{
		RatesRefresh: cfg.Rates.Refresh,
		Reconcile:    cfg.ReconcileSchedule,
	})
	if err != nil {
		log.Fatalf("Failed to start background jobs: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "TuraPay API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, cfg, routes.Services{
		DB:        db,
		Cache:     pinger,
		Auth:      authSvc,
		Transfers: transfers,
		Payments:  payment.NewService(gw, transfers, entries, cfg.ReconcileMaxAttempts),
		Callbacks: payment.NewCallbackProcessor(txRepo, transfers),
		Admin:     admin.NewService(transfers, userRepo, notifier),
		Settings:  settings.NewService(settingRepo, appCache),
		Rates:     ratesSvc,
		KYC:       kyc.NewService(db, repositories.NewKYCRepository(db), userRepo),
		Entries:   entries,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()
	log.Printf("🚀 TuraPay API listening on :%s (%s)", cfg.Port, cfg.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	jobs.Stop(scheduler, 30*time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown error: %v", err)
	}

	repositories.Close(db)
	if cacheSvc != nil {
		if err := cacheSvc.Close(); err != nil {
			log.Printf("⚠️ Failed to close Redis connection: %v", err)
		}
	}
	log.Println("Shutdown complete")
}
