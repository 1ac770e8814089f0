package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/2beens/pushupjourney/internal/telemetry/tracing"
	"github.com/2beens/pushupjourney/pkg"

	"go.uber.org/multierr"
)

var _ Store = (*DiskStore)(nil)

var diskKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// DiskStore keeps one JSON file per key under the root dir.
type DiskStore struct {
	rootPath string
}

func NewDiskStore(rootPath string) (*DiskStore, error) {
	if rootPath == "" {
		return nil, errors.New("disk store root path not set")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create disk store root [%s]: %w", rootPath, err)
	}
	exists, err := pkg.PathExists(rootPath, true)
	if err != nil {
		return nil, fmt.Errorf("check disk store root: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("disk store root [%s] not created", rootPath)
	}
	return &DiskStore{
		rootPath: rootPath,
	}, nil
}

func (s *DiskStore) keyPath(key string) (string, error) {
	if !diskKeyRegex.MatchString(key) {
		return "", fmt.Errorf("invalid disk store key [%s]", key)
	}
	return filepath.Join(s.rootPath, key+".json"), nil
}

func (s *DiskStore) Get(ctx context.Context, key string) (_ []byte, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.disk.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read [%s]: %w", path, err)
	}
	return data, nil
}

func (s *DiskStore) Set(ctx context.Context, key string, value []byte) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.disk.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	return pkg.WriteFileAtomic(path, value, 0o600)
}

func (s *DiskStore) Delete(ctx context.Context, keys ...string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.disk.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	for _, key := range keys {
		path, pathErr := s.keyPath(key)
		if pathErr != nil {
			err = multierr.Append(err, pathErr)
			continue
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = multierr.Append(err, fmt.Errorf("remove [%s]: %w", path, rmErr))
		}
	}
	return err
}

func (s *DiskStore) Close() error {
	return nil
}
