// Package objstore gives the job a single view over the places it reads from
// and writes to: Google Cloud Storage buckets and the local filesystem.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrNotExist is returned when an object is missing.
	ErrNotExist = errors.New("object does not exist")
	// ErrUnsupportedScheme is returned for locations no backend serves.
	ErrUnsupportedScheme = errors.New("unsupported location scheme")
)

const (
	SchemeGCS  = "gs"
	SchemeFile = "file"
)

// Store reads and writes named objects. Names are bucket keys for GCS and
// filesystem paths for local storage.
type Store interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create returns a writer that commits the object on Close.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	// List returns the names of all objects below the directory prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Config configures store construction for one run.
type Config struct {
	// Endpoint overrides the GCS endpoint, for emulators. Requests are then
	// sent unauthenticated.
	Endpoint string
	// Fs backs local locations. Defaults to the OS filesystem.
	Fs afero.Fs
}

// Location is a parsed storage URI.
type Location struct {
	Scheme string
	Bucket string
	Path   string
}

// ParseLocation accepts gs://bucket/path, file:///path or a plain path.
func ParseLocation(uri string) (Location, error) {
	if uri == "" {
		return Location{}, errors.New("empty location")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: SchemeFile, Path: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("parse location %q: %w", uri, err)
	}
	switch u.Scheme {
	case SchemeGCS:
		if u.Host == "" {
			return Location{}, fmt.Errorf("location %q has no bucket", uri)
		}
		return Location{Scheme: SchemeGCS, Bucket: u.Host, Path: strings.TrimPrefix(u.Path, "/")}, nil
	case SchemeFile:
		return Location{Scheme: SchemeFile, Path: u.Path}, nil
	default:
		return Location{}, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (l Location) String() string {
	if l.Scheme == SchemeGCS {
		return "gs://" + l.Bucket + "/" + l.Path
	}
	return l.Path
}

// New returns the store serving loc. The caller closes it.
func New(ctx context.Context, loc Location, cfg Config) (Store, error) {
	switch loc.Scheme {
	case SchemeGCS:
		return newGCSStore(ctx, loc.Bucket, cfg.Endpoint)
	case SchemeFile:
		fs := cfg.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return &localStore{fs: fs}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, loc.Scheme)
	}
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
