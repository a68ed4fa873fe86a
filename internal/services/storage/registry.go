package storage

import (
	"context"
	"fmt"

	"github.com/phambaophuc/image-compressor/internal/config"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Registry remembers finished batches so their archives can be downloaded
// and cleaned up by id. Get and Latest return common.ErrBatchNotFound when
// nothing matches.
type Registry interface {
	Save(ctx context.Context, record models.BatchRecord) error
	Get(ctx context.Context, id string) (*models.BatchRecord, error)
	Latest(ctx context.Context) (*models.BatchRecord, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	HealthCheck(ctx context.Context) string
}

// NewRegistry builds the registry selected by BATCH_STORE.
func NewRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Registry, error) {
	switch cfg.Storage.BatchStore {
	case config.BatchStoreMemory, "":
		return NewMemoryRegistry(cfg.Storage.BatchTTL), nil
	case config.BatchStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}

		logger.Info("Batch registry backed by redis", zap.String("addr", cfg.Redis.Addr))
		return NewRedisRegistry(client, cfg.Storage.BatchTTL), nil
	default:
		return nil, fmt.Errorf("unknown batch store %q", cfg.Storage.BatchStore)
	}
}
