package storage

import (
	"context"
	"fmt"

	"github.com/jrsteele09/smartcane-client/internal/config"
	"github.com/rs/zerolog/log"
)

// NewFromConfig opens the backend named by SMARTCANE_STORAGE.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	backend := cfg.GetStorageBackend()
	log.Debug().Str("backend", backend).Msg("opening token storage")

	switch backend {
	case config.StorageFile, "":
		return NewFile(cfg.GetTokenFilePath())
	case config.StorageSQLite:
		return NewSQLite(ctx, cfg.GetSQLitePath())
	case config.StorageRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:      cfg.GetRedisAddr(),
			Password:  cfg.GetRedisPassword(),
			DB:        cfg.GetRedisDB(),
			KeyPrefix: cfg.GetRedisKeyPrefix(),
		})
	case config.StorageMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}
