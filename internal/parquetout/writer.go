// Package parquetout persists zone records as a Parquet dataset directory: one
// part file plus a _SUCCESS marker.
package parquetout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/sqlpipe/taxi-zone-cleaner/internal/objstore"
	"github.com/sqlpipe/taxi-zone-cleaner/internal/zone"
)

// SaveMode decides what happens when the destination already holds objects.
type SaveMode string

const (
	Overwrite     SaveMode = "overwrite"
	Append        SaveMode = "append"
	ErrorIfExists SaveMode = "errorifexists"
	Ignore        SaveMode = "ignore"
)

// SuccessMarker is written last; its presence marks a complete dataset.
const SuccessMarker = "_SUCCESS"

// ErrDestinationExists is returned in ErrorIfExists mode.
var ErrDestinationExists = errors.New("destination already exists")

// Options configures Write.
type Options struct {
	// Mode defaults to Overwrite.
	Mode SaveMode
	// Compression is snappy, gzip, zstd or none. Defaults to snappy.
	Compression string
	Logger      *slog.Logger
}

// Result describes a completed write.
type Result struct {
	Files   []string
	Rows    int
	Removed int
	Skipped bool
}

// Write stores records below dir. Any failure is returned as is; objects
// already written are left in place.
func Write(ctx context.Context, store objstore.Store, dir string, records []zone.Record, opts Options) (Result, error) {
	var res Result

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mode := opts.Mode
	if mode == "" {
		mode = Overwrite
	}
	codec, ext, err := codecFor(opts.Compression)
	if err != nil {
		return res, err
	}

	existing, err := store.List(ctx, dir)
	if err != nil {
		return res, err
	}

	switch mode {
	case Overwrite:
		for _, name := range existing {
			err := store.Delete(ctx, name)
			if errors.Is(err, objstore.ErrNotExist) {
				continue
			}
			if err != nil {
				return res, err
			}
			res.Removed++
		}
		if res.Removed > 0 {
			logger.Info("Removed previous output", "dir", dir, "objects", res.Removed)
		}
	case Append:
	case ErrorIfExists:
		if len(existing) > 0 {
			return res, fmt.Errorf("%w: %s holds %d objects", ErrDestinationExists, dir, len(existing))
		}
	case Ignore:
		if len(existing) > 0 {
			logger.Info("Destination exists, skipping write", "dir", dir)
			res.Skipped = true
			return res, nil
		}
	default:
		return res, fmt.Errorf("unknown save mode %q", mode)
	}

	name := path.Join(dir, fmt.Sprintf("part-00000-%s-c000%s.parquet", uuid.NewString(), ext))
	if err := writePart(ctx, store, name, records, codec); err != nil {
		return res, err
	}
	res.Files = append(res.Files, name)
	res.Rows = len(records)

	marker, err := store.Create(ctx, path.Join(dir, SuccessMarker))
	if err != nil {
		return res, err
	}
	if err := marker.Close(); err != nil {
		return res, fmt.Errorf("write %s: %w", SuccessMarker, err)
	}

	return res, nil
}

func writePart(ctx context.Context, store objstore.Store, name string, records []zone.Record, codec compress.Codec) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}

	pw := parquet.NewGenericWriter[zone.Record](w, parquet.Compression(codec))
	if _, err := pw.Write(records); err != nil {
		_ = w.Close()
		return fmt.Errorf("write rows to %s: %w", name, err)
	}
	if err := pw.Close(); err != nil {
		_ = w.Close()
		return fmt.Errorf("finish %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// codecFor maps a compression name to its codec and file name infix.
func codecFor(name string) (compress.Codec, string, error) {
	switch name {
	case "", "snappy":
		return &parquet.Snappy, ".snappy", nil
	case "gzip":
		return &parquet.Gzip, ".gz", nil
	case "zstd":
		return &parquet.Zstd, ".zstd", nil
	case "none", "uncompressed":
		return &parquet.Uncompressed, "", nil
	default:
		return nil, "", fmt.Errorf("unknown compression %q", name)
	}
}
