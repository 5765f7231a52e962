package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/afero"
)

type localStore struct {
	fs afero.Fs
}

func (s *localStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", name, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

func (s *localStore) Create(_ context.Context, name string) (io.WriteCloser, error) {
	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", name, err)
	}
	f, err := s.fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return f, nil
}

func (s *localStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := afero.Walk(s.fs, prefix, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return names, nil
}

func (s *localStore) Delete(_ context.Context, name string) error {
	err := s.fs.Remove(name)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", name, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (s *localStore) Close() error { return nil }
