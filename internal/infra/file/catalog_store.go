// Package file persists the catalog cache as two files in a directory, one
// per storage key, mirroring the key/value layout of the other stores.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"math-physical/internal/domain"
)

type CatalogStore struct {
	dir string
}

func NewCatalogStore(dir string) *CatalogStore {
	return &CatalogStore{dir: dir}
}

func (s *CatalogStore) Load(_ context.Context) (domain.CacheEntry, bool, error) {
	data, err := os.ReadFile(s.path(domain.CacheDataKey))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("read catalog: %w", err)
	}
	stamp, err := os.ReadFile(s.path(domain.CacheTimeKey))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("read catalog time: %w", err)
	}

	entry, err := domain.DecodeCacheEntry(string(data), string(stamp))
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	return entry, true, nil
}

// Save writes the data file before the timestamp, each through a rename, so a
// reader never pairs a new timestamp with old data.
func (s *CatalogStore) Save(_ context.Context, entry domain.CacheEntry) error {
	data, stamp, err := domain.EncodeCacheEntry(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := s.write(domain.CacheDataKey, data); err != nil {
		return err
	}
	return s.write(domain.CacheTimeKey, stamp)
}

func (s *CatalogStore) write(key, value string) error {
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *CatalogStore) path(key string) string {
	return filepath.Join(s.dir, key)
}
