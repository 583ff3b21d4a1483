package memory

import (
	"context"
	"sync"

	"math-physical/internal/domain"
)

// CatalogStore keeps the cached catalog in process memory. It does not
// survive a restart, so every new process refreshes from the remote API.
type CatalogStore struct {
	mu    sync.RWMutex
	entry domain.CacheEntry
	ok    bool
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{}
}

func (s *CatalogStore) Load(_ context.Context) (domain.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entry, s.ok, nil
}

func (s *CatalogStore) Save(_ context.Context, entry domain.CacheEntry) error {
	s.mu.Lock()
	s.entry = entry
	s.ok = true
	s.mu.Unlock()
	return nil
}

// StaticCatalog is a CatalogSource backed by a fixed map (useful for tests/demos).
type StaticCatalog struct {
	catalog domain.CourseTopicMap
	err     error
}

func NewStaticCatalog(catalog domain.CourseTopicMap) *StaticCatalog {
	return &StaticCatalog{catalog: catalog}
}

// NewFailingCatalog returns a source whose every fetch fails with err.
func NewFailingCatalog(err error) *StaticCatalog {
	return &StaticCatalog{err: err}
}

func (s *StaticCatalog) ListCoursesAndTopics(_ context.Context) (domain.CourseTopicMap, error) {
	if s.err != nil {
		return domain.CourseTopicMap{}, s.err
	}
	return s.catalog, nil
}
