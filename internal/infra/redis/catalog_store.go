package redis

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"math-physical/internal/domain"
)

// DefaultPrefix namespaces the cache keys in a shared Redis.
const DefaultPrefix = "math-physical:"

// CatalogStore keeps the cached catalog in two Redis strings:
//
//	SET {prefix}math_course_data {json}
//	SET {prefix}math_course_time {epoch millis}
//
// Both are written in one MULTI so readers never see a mixed pair.
type CatalogStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewCatalogStore creates a store. A positive ttl lets Redis evict entries
// nobody refreshed; freshness itself is still decided from the timestamp.
func NewCatalogStore(client *redis.Client, prefix string, ttl time.Duration) *CatalogStore {
	return &CatalogStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *CatalogStore) Load(ctx context.Context) (domain.CacheEntry, bool, error) {
	values, err := s.client.MGet(ctx, s.key(domain.CacheDataKey), s.key(domain.CacheTimeKey)).Result()
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("load catalog: %w", err)
	}
	data, okData := values[0].(string)
	stamp, okStamp := values[1].(string)
	if !okData || !okStamp {
		return domain.CacheEntry{}, false, nil
	}
	entry, err := domain.DecodeCacheEntry(data, stamp)
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	return entry, true, nil
}

func (s *CatalogStore) Save(ctx context.Context, entry domain.CacheEntry) error {
	data, stamp, err := domain.EncodeCacheEntry(entry)
	if err != nil {
		return err
	}
	ttl := s.ttlWithJitter()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(domain.CacheDataKey), data, ttl)
		pipe.Set(ctx, s.key(domain.CacheTimeKey), stamp, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

func (s *CatalogStore) key(name string) string {
	return s.prefix + name
}

func (s *CatalogStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter so replicas sharing a Redis do not expire together
	jitterMax := int64(s.ttl) / 10
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
