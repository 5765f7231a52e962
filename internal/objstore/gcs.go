package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type gcsStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func newGCSStore(ctx context.Context, bucket, endpoint string) (*gcsStore, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcsStore{client: client, bucket: client.Bucket(bucket)}, nil
}

func (s *gcsStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("open %s: %w", name, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return r, nil
}

func (s *gcsStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType(name)
	return w, nil
}

func (s *gcsStore) List(ctx context.Context, prefix string) ([]string, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var names []string
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (s *gcsStore) Delete(ctx context.Context, name string) error {
	err := s.bucket.Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", name, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}
