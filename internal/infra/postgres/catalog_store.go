package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"math-physical/internal/domain"
)

// CatalogStore keeps the cached catalog as two rows of the cache_entries
// key/value table, written in one transaction.
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) Load(ctx context.Context) (domain.CacheEntry, bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM cache_entries WHERE key = ANY($1)`,
		[]string{domain.CacheDataKey, domain.CacheTimeKey})
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.CacheEntry{}, false, fmt.Errorf("scan catalog: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("load catalog: %w", err)
	}

	data, okData := values[domain.CacheDataKey]
	stamp, okStamp := values[domain.CacheTimeKey]
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
	err = s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		for key, value := range map[string]string{domain.CacheDataKey: data, domain.CacheTimeKey: stamp} {
			if _, err := tx.Exec(ctx,
				`INSERT INTO cache_entries (key, value, updated_at) VALUES ($1, $2, now())
				 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
				key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}
