package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/coocood/freecache"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps blobs in a volatile freecache. Entries never expire.
type MemoryStore struct {
	cache *freecache.Cache
}

func NewMemoryStore(sizeMB int) *MemoryStore {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	megabyte := 1024 * 1024
	return &MemoryStore{
		cache: freecache.NewCache(sizeMB * megabyte),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	value, err := s.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("memory get [%s]: %w", key, err)
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if err := s.cache.Set([]byte(key), value, 0); err != nil {
		return fmt.Errorf("memory set [%s]: %w", key, err)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Del([]byte(key))
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.cache.Clear()
	return nil
}
