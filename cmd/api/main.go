package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lromero/facturabot/internal/api"
	"github.com/lromero/facturabot/internal/config"
	"github.com/lromero/facturabot/internal/engine"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/portal"
	"github.com/lromero/facturabot/internal/repository"
	"github.com/lromero/facturabot/internal/session"
	"github.com/lromero/facturabot/internal/source"
	"github.com/lromero/facturabot/internal/storage"
)

func main() {
	// Initialize logger first (with env-based defaults)
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Initialize database for batch job tracking
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	jobRepo := repository.NewBatchJobRepository(db)

	// Initialize artifact storage (supports MinIO, R2, S3)
	objectStorage, err := storage.NewStorage(&storage.Config{
		Type:      cfg.Storage.Type,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	// Session cache and portal clients
	sessions := session.NewCache(objectStorage)
	registry := portal.NewRegistry(portal.Deps{
		Sessions:     sessions,
		DownloadPath: cfg.Engine.DownloadPath,
	})
	registry.Register("suizo", func(deps portal.Deps) (portal.Client, error) {
		return portal.NewSuizoClient(portal.SuizoConfig{
			BaseURL:  cfg.Providers.Suizo.BaseURL,
			Username: cfg.Providers.Suizo.Username,
			Password: cfg.Providers.Suizo.Password,
			Timeout:  cfg.Engine.ItemTimeout,
		}, deps)
	})
	registry.Register("monroe", func(deps portal.Deps) (portal.Client, error) {
		return portal.NewMonroeClient(portal.MonroeConfig{
			BaseURL:       cfg.Providers.Monroe.BaseURL,
			Username:      cfg.Providers.Monroe.Username,
			Password:      cfg.Providers.Monroe.Password,
			PeriodDays:    cfg.Providers.Monroe.PeriodDays,
			Timeout:       cfg.Engine.ItemTimeout,
			Interactive:   cfg.Providers.Monroe.Interactive,
			ChallengeWait: cfg.Providers.Monroe.ChallengeWait,
		}, deps)
	})

	// Processing engine
	processor := engine.NewItemProcessor(cfg.Engine.MaxRetries, cfg.Engine.RetryDelay)
	uploader := engine.NewArtifactUploader(objectStorage)
	runner := engine.NewBatchRunner(processor, objectStorage, uploader)

	var queue *engine.QueueClient
	if cfg.Queue.WorkerURL != "" {
		queue = engine.NewQueueClient(cfg.Queue.WorkerURL, cfg.Queue.AuthToken, cfg.Queue.Timeout)
		appLogger.WithFields(logger.Fields{"worker_url": cfg.Queue.WorkerURL}).Info("Queue fan-out enabled")
	}
	dispatcher := engine.NewDispatcher(runner, registry, queue, jobRepo)
	aggregator := engine.NewAggregator(objectStorage)

	// Setup router
	router := api.SetupRouter(api.RouterDeps{
		Config:     cfg,
		Log:        appLogger,
		Reader:     source.NewExcelReader(),
		Dispatcher: dispatcher,
		Aggregator: aggregator,
		Sessions:   sessions,
		Registry:   registry,
		Jobs:       jobRepo,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
