package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"math-physical/internal/domain"
)

// DefaultFreshness is how long a cached catalog is served without a refresh.
const DefaultFreshness = 60 * time.Minute

// CatalogCache serves the course catalog from a durable store while it is
// fresh and falls back to the remote API otherwise.
type CatalogCache struct {
	store  CatalogStore
	source CatalogSource
	clock  func() time.Time
	sf     singleflight.Group
	logger *zap.Logger
}

func NewCatalogCache(store CatalogStore, source CatalogSource, logger *zap.Logger) *CatalogCache {
	return NewCatalogCacheWithClock(store, source, logger, time.Now)
}

// NewCatalogCacheWithClock allows deterministic freshness checks in tests.
func NewCatalogCacheWithClock(store CatalogStore, source CatalogSource, logger *zap.Logger, clock func() time.Time) *CatalogCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCache{
		store:  store,
		source: source,
		clock:  clock,
		logger: logger.Named("catalog"),
	}
}

// CourseTopicMap returns the catalog, refreshing it when the stored entry is
// missing or older than window. A failed refresh never falls back to stale data.
func (c *CatalogCache) CourseTopicMap(ctx context.Context, window time.Duration) (domain.CourseTopicMap, error) {
	if m, ok := c.fresh(ctx, window); ok {
		return m, nil
	}

	result, err, _ := c.sf.Do("catalog", func() (interface{}, error) {
		// Re-check in case a concurrent caller refreshed the store.
		if m, ok := c.fresh(ctx, window); ok {
			return m, nil
		}

		now := c.clock()
		m, err := c.source.ListCoursesAndTopics(ctx)
		if err != nil {
			return domain.CourseTopicMap{}, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
		}
		if err := c.store.Save(ctx, domain.CacheEntry{Data: m, FetchedAt: now}); err != nil {
			c.logger.Warn("persist catalog failed", zap.Error(err))
		}
		c.logger.Info("catalog refreshed", zap.Int("courses", m.Len()))
		return m, nil
	})
	if err != nil {
		return domain.CourseTopicMap{}, err
	}
	return result.(domain.CourseTopicMap), nil
}

func (c *CatalogCache) fresh(ctx context.Context, window time.Duration) (domain.CourseTopicMap, bool) {
	entry, ok, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("read cached catalog failed", zap.Error(err))
		return domain.CourseTopicMap{}, false
	}
	if !ok || !entry.Fresh(c.clock(), window) {
		return domain.CourseTopicMap{}, false
	}
	c.logger.Debug("serving cached catalog", zap.Time("fetched_at", entry.FetchedAt))
	return entry.Data, true
}
