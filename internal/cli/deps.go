package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"math-physical/internal/app"
	"math-physical/internal/config"
	"math-physical/internal/infra/file"
	"math-physical/internal/infra/memory"
	pgstore "math-physical/internal/infra/postgres"
	redisstore "math-physical/internal/infra/redis"
	"math-physical/internal/infra/remote"
	"math-physical/internal/logging"
	"math-physical/internal/metrics"
)

// deps holds everything a command needs to build Apps.
type deps struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	gateway  *remote.Client
	catalog  *app.CatalogCache
	closers  []func()
}

// loadConfig reads the YAML config; a missing file means defaults.
func loadConfig(path string) (config.Config, bool, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, false, nil
	}
	if err != nil {
		return cfg, false, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, true, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
}

func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	d.gateway = remote.New(remote.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   config.TTLDuration(cfg.API.Timeout, 15*time.Second),
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		Metrics:   metrics.NewGateway(d.registry),
		Logger:    logger,
	})

	store, err := d.catalogStore(ctx)
	if err != nil {
		d.close()
		return nil, err
	}
	d.catalog = app.NewCatalogCache(store, d.gateway, logger)
	return d, nil
}

func (d *deps) catalogStore(ctx context.Context) (app.CatalogStore, error) {
	cfg := d.cfg
	switch cfg.Cache.Backend {
	case "", "file":
		return file.NewCatalogStore(cfg.Cache.Dir), nil
	case "memory":
		return memory.NewCatalogStore(), nil
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("cache backend redis: redis addr not configured")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = client.Close() })
		ttl := config.TTLDuration(cfg.Cache.TTL, 0)
		return redisstore.NewCatalogStore(client, redisstore.DefaultPrefix, ttl), nil
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg, d.logger); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		return pgstore.NewCatalogStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// newApp builds the state of one client.
func (d *deps) newApp(onTick func(clock string)) *app.App {
	return app.New(d.gateway, d.catalog, app.Options{
		Freshness:    config.TTLDuration(d.cfg.Cache.Freshness, app.DefaultFreshness),
		CountOptions: d.cfg.Quiz.CountOptions,
		DefaultCount: d.cfg.Quiz.DefaultCount,
		Tick:         config.TTLDuration(d.cfg.Quiz.Tick, time.Second),
		OnTick:       onTick,
		Logger:       d.logger,
	})
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	_ = d.logger.Sync()
}
