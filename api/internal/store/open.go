package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cf-hints/api/internal/config"
	"cf-hints/api/internal/metrics"
)

// Backend is the hint cache selected by configuration.
type Backend struct {
	HintStore
	// Check reports backend health for /healthz.
	Check func(ctx context.Context) error
	Close func() error
}

// Open builds the configured cache backend, wrapped in an LRU when
// CacheLRUSize > 0. files serves the file backend.
func Open(ctx context.Context, cfg *config.Config, files *FileStore, m *metrics.Metrics, log *zap.Logger) (*Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Backend{
		Check: func(context.Context) error { return nil },
		Close: func() error { return nil },
	}
	switch cfg.CacheBackend {
	case config.BackendFile, "":
		if files == nil {
			return nil, fmt.Errorf("file backend needs a file store")
		}
		b.HintStore = files
	case config.BackendPostgres:
		db, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pg := NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		log.Info("db connected", zap.String("dsn", SafeDSNSummary(cfg.DatabaseURL)))
		b.HintStore, b.Check, b.Close = pg, db.PingContext, db.Close
	case config.BackendRedis:
		rs := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		log.Info("redis connected", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
		b.HintStore, b.Check, b.Close = rs, rs.Ping, rs.Close
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}

	if cfg.CacheLRUSize > 0 {
		cs, err := NewCachedStore(b.HintStore, cfg.CacheLRUSize, m)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.HintStore = cs
	}
	return b, nil
}
