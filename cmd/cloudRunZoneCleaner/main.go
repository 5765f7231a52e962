package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sqlpipe/taxi-zone-cleaner/internal/config"
	"github.com/sqlpipe/taxi-zone-cleaner/internal/job"
	"github.com/sqlpipe/taxi-zone-cleaner/internal/objstore"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Re-instantiate logger with task/dag context
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level(cfg.LogLevel)})).With(
		"task-id", cfg.TaskID,
		"dag-id", cfg.DagID,
	)

	logger.Info("Cleaning taxi zones",
		"source", cfg.Source,
		"destination", cfg.Destination,
		"readMode", cfg.ReadMode,
		"writeMode", cfg.WriteMode,
		"nullValues", cfg.NullValues,
	)

	ctx := context.Background()
	pipeline, release, err := job.Open(ctx, cfg, objstore.Config{Endpoint: cfg.StorageEndpoint}, logger)
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}

	stats, err := pipeline.Run(ctx)
	if err != nil {
		logger.Error("Failed to clean taxi zones", "error", err)
		_ = release()
		os.Exit(1)
	}

	if err := release(); err != nil {
		logger.Error("Failed to close storage", "error", err)
		os.Exit(1)
	}

	logger.Info("Taxi zones cleaned",
		"rows", stats.Read.Rows,
		"malformed", stats.Read.Malformed,
		"nonEmpty", stats.NonEmpty,
		"unique", stats.Unique,
		"files", stats.Write.Files,
	)
}
