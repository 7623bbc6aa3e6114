package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wekeepgrowing/jobportal-payment/internal/bootstrap"
	"github.com/wekeepgrowing/jobportal-payment/internal/config"
	grpcServer "github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/http"
	"github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/worker"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting payment service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("version", cfg.Service.Version))

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize service", zap.Error(err))
	}
	defer app.Close()

	// Run database migrations
	if err := app.Migrate(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background reconciliation: webhook retries and stale pending payments
	pool := worker.NewPool(cfg.Reconcile.Workers, app.Reconciler, logger)
	dispatcher := worker.NewDispatcher(app.Reconciler, pool, cfg.Reconcile.Interval, cfg.Reconcile.BatchSize, logger)
	sweeper := worker.NewSweeper(app.Payments, app.Metrics.PendingSwept, cfg.Reconcile.Interval, cfg.Reconcile.StaleAfter, cfg.Reconcile.BatchSize, logger)

	var background sync.WaitGroup
	pool.Start(ctx)
	background.Add(2)
	go func() {
		defer background.Done()
		dispatcher.Start(ctx)
	}()
	go func() {
		defer background.Done()
		sweeper.Start(ctx)
	}()

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, logger)
	httpSrv := httpServer.NewServer(cfg, logger, httpServer.Services{
		Payments:      app.Payments,
		Subscriptions: app.Subscriptions,
		Plans:         app.Plans,
		Reconciler:    app.Reconciler,
	}, app.Metrics)

	if err := grpcSrv.Listen(); err != nil {
		logger.Fatal("Failed to start gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			logger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()
	grpcSrv.SetServing(true)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	// Stop taking traffic before the workers drain
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	// The dispatcher must be gone before the pool closes its queue
	cancel()
	background.Wait()
	pool.Stop()

	logger.Info("Servers shut down successfully")
}
