package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

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
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "facturabot-fetch",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	filePath := flag.String("file", "", "Worksheet (.xlsx) to process")
	provider := flag.String("provider", "", "Restrict processing to one provider")
	dryRun := flag.Bool("dry-run", false, "Analyze the worksheet without downloading")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()

	// Parse worksheet
	items, err := source.NewExcelReader().Read(*filePath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to parse worksheet")
	}
	if *provider != "" {
		want := portal.NormalizeProvider(*provider)
		filtered := items[:0]
		for _, item := range items {
			if portal.NormalizeProvider(item.Provider) == want {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if len(items) == 0 {
		appLogger.Fatal("Worksheet has no processable rows")
	}

	appLogger.WithFields(logger.Fields{
		"file":  *filePath,
		"items": len(items),
	}).Info("Worksheet parsed")

	if *dryRun {
		for provider, group := range engine.GroupByProvider(items) {
			fmt.Printf("%s: %d items\n", provider, len(group))
			for _, item := range group {
				fmt.Printf("  %s (%s)\n", item.Identifier, item.FullDocument)
			}
		}
		return
	}

	// Initialize artifact storage
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

	// Batch job tracking is optional for CLI runs
	var jobs engine.JobRecorder
	if db, err := repository.InitDB(&cfg.Database); err != nil {
		appLogger.WithError(err).Warn("Running without batch job tracking")
	} else {
		jobs = repository.NewBatchJobRepository(db)
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

	// Processing engine, always local for CLI runs
	processor := engine.NewItemProcessor(cfg.Engine.MaxRetries, cfg.Engine.RetryDelay)
	uploader := engine.NewArtifactUploader(objectStorage)
	runner := engine.NewBatchRunner(processor, objectStorage, uploader)
	dispatcher := engine.NewDispatcher(runner, registry, nil, jobs)

	executionID := uuid.New().String()
	ctx = logger.SetExecutionID(ctx, executionID)

	batches := engine.Plan(items, cfg.Engine.BatchSize, executionID)
	result, err := dispatcher.Dispatch(ctx, batches, true)
	if err != nil {
		appLogger.WithError(err).Fatal("Dispatch failed")
	}

	var successful, failed int
	for _, b := range result.Batches {
		if b.Summary != nil {
			successful += b.Summary.Successful
			failed += b.Summary.Failed
		}
	}
	appLogger.WithFields(logger.Fields{
		"execution_id": executionID,
		"batches":      len(result.Batches),
		"successful":   successful,
		"failed":       failed,
	}).Info("Run finished")

	if failed > 0 {
		os.Exit(1)
	}
}
