package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sqlpipe/taxi-zone-cleaner/internal/config"
	"github.com/sqlpipe/taxi-zone-cleaner/internal/fetch"
	"github.com/sqlpipe/taxi-zone-cleaner/internal/objstore"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadFetch()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Instantiate new logger once we have all the env vars
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level(cfg.LogLevel)})).With(
		"task-id", cfg.TaskID,
		"dag-id", cfg.DagID,
	)

	loc, err := objstore.ParseLocation(cfg.Destination)
	if err != nil {
		logger.Error("Invalid destination", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := objstore.New(ctx, loc, objstore.Config{Endpoint: cfg.StorageEndpoint})
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	n, err := fetch.Download(ctx, fetch.NewClient(cfg.HTTPTimeout), cfg.SourceURL, store, loc.Path)
	if err != nil {
		logger.Error("Failed to download file", "error", err)
		store.Close()
		os.Exit(1)
	}

	logger.Info("File downloaded", "sourceUrl", cfg.SourceURL, "destination", loc.String(), "bytes", n)
}
