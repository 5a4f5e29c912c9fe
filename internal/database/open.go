package database

import (
	"context"
	"fmt"

	"billionaire_empire/internal/config"
)

// Open builds the store selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.BackendSQL:
		return NewSQLStore(ctx, cfg.SQLDriver, cfg.SQLDSN)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.StateTTL)
	case config.BackendFile:
		return NewFileStore(cfg.SnapshotDir)
	case config.BackendMemory, "":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
