// Package job runs the taxi zone cleaning pipeline:
// read → drop all-absent rows → trim → dedup → write.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sqlpipe/taxi-zone-cleaner/internal/clean"
	"github.com/sqlpipe/taxi-zone-cleaner/internal/config"
	"github.com/sqlpipe/taxi-zone-cleaner/internal/objstore"
	"github.com/sqlpipe/taxi-zone-cleaner/internal/parquetout"
	"github.com/sqlpipe/taxi-zone-cleaner/internal/zonecsv"
)

// Options configures the read and write stages.
type Options struct {
	Read  zonecsv.Options
	Write parquetout.Options
}

// OptionsFromConfig maps the job settings onto stage options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Read: zonecsv.Options{
			Header:     cfg.Header,
			Delimiter:  []rune(cfg.Delimiter)[0],
			NullValues: cfg.NullValues,
			Mode:       zonecsv.Mode(cfg.ReadMode),
		},
		Write: parquetout.Options{
			Mode:        parquetout.SaveMode(cfg.WriteMode),
			Compression: cfg.Compression,
		},
	}
}

// Stats holds the record counts observed along the pipeline.
type Stats struct {
	Read     zonecsv.Stats
	Loaded   int
	NonEmpty int
	Unique   int
	Write    parquetout.Result
}

// Pipeline is one run of the job. Stores are owned by the caller.
type Pipeline struct {
	Source      objstore.Store
	SourceName  string
	Destination objstore.Store
	DestDir     string
	Options     Options
	Logger      *slog.Logger
}

// Run executes every stage in order. Any error aborts the run.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rc, err := p.Source.Open(ctx, p.SourceName)
	if err != nil {
		return stats, fmt.Errorf("open source: %w", err)
	}
	readOpts := p.Options.Read
	readOpts.Logger = logger
	raw, readStats, err := zonecsv.Read(ctx, rc, readOpts)
	closeErr := rc.Close()
	if err != nil {
		return stats, fmt.Errorf("read source: %w", err)
	}
	if closeErr != nil {
		return stats, fmt.Errorf("close source: %w", closeErr)
	}
	stats.Read = readStats
	stats.Loaded = len(raw)
	logger.Info("Read source", "source", p.SourceName, "rows", readStats.Rows, "malformed", readStats.Malformed, "dropped", readStats.Dropped)

	records := clean.DropAllAbsent(clean.Project(raw))
	stats.NonEmpty = len(records)
	logger.Info("Dropped all-absent rows", "before", stats.Loaded, "after", stats.NonEmpty)

	records = clean.Apply(records, clean.TrimStrings, clean.Dedup)
	stats.Unique = len(records)
	logger.Info("Removed duplicates", "before", stats.NonEmpty, "after", stats.Unique)

	writeOpts := p.Options.Write
	writeOpts.Logger = logger
	res, err := parquetout.Write(ctx, p.Destination, p.DestDir, records, writeOpts)
	if err != nil {
		return stats, fmt.Errorf("write destination: %w", err)
	}
	stats.Write = res
	logger.Info("Wrote destination", "dir", p.DestDir, "files", res.Files, "rows", res.Rows, "skipped", res.Skipped)

	return stats, nil
}

// Open builds a pipeline for the configured locations. The returned func
// releases the stores it created.
func Open(ctx context.Context, cfg *config.Config, storeCfg objstore.Config, logger *slog.Logger) (*Pipeline, func() error, error) {
	srcLoc, err := objstore.ParseLocation(cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("source: %w", err)
	}
	dstLoc, err := objstore.ParseLocation(cfg.Destination)
	if err != nil {
		return nil, nil, fmt.Errorf("destination: %w", err)
	}

	src, err := objstore.New(ctx, srcLoc, storeCfg)
	if err != nil {
		return nil, nil, err
	}
	dst, err := objstore.New(ctx, dstLoc, storeCfg)
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}

	p := &Pipeline{
		Source:      src,
		SourceName:  srcLoc.Path,
		Destination: dst,
		DestDir:     dstLoc.Path,
		Options:     OptionsFromConfig(cfg),
		Logger:      logger,
	}
	return p, func() error { return errors.Join(src.Close(), dst.Close()) }, nil
}
