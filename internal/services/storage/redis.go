package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	batchKeyPrefix = "batch:"
	latestBatchKey = "batch:latest"
)

// RedisRegistry stores batch records as JSON under batch:<id> so several
// server instances sharing WORK_DIR can serve each other's downloads.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisRegistry) Save(ctx context.Context, record models.BatchRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode batch record: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, batchKey(record.ID), data, r.ttl)
		pipe.Set(ctx, latestBatchKey, record.ID, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save batch record: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (*models.BatchRecord, error) {
	data, err := r.client.Get(ctx, batchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrBatchNotFound
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var record models.BatchRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode batch record: %w", err)
	}
	return &record, nil
}

func (r *RedisRegistry) Latest(ctx context.Context) (*models.BatchRecord, error) {
	id, err := r.client.Get(ctx, latestBatchKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrBatchNotFound
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *RedisRegistry) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, batchKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete batch record: %w", err)
	}

	// Only move the latest pointer if it still names this batch.
	latest, err := r.client.Get(ctx, latestBatchKey).Result()
	if err != nil || latest != id {
		return nil
	}
	if err := r.promoteNewest(ctx); err != nil {
		return fmt.Errorf("failed to update latest batch: %w", err)
	}
	return nil
}

// promoteNewest points batch:latest at the most recently created record left,
// or removes it when none remain.
func (r *RedisRegistry) promoteNewest(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, batchKeyPrefix+"*").Result()
	if err != nil {
		return err
	}

	var newest *models.BatchRecord
	var newestKey string
	for _, key := range keys {
		if key == latestBatchKey {
			continue
		}
		data, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var record models.BatchRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		if newest == nil || record.CreatedAt.After(newest.CreatedAt) {
			newest = &record
			newestKey = key
		}
	}

	if newest == nil {
		return r.client.Del(ctx, latestBatchKey).Err()
	}

	ttl, err := r.client.PTTL(ctx, newestKey).Result()
	if err != nil || ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, latestBatchKey, newest.ID, ttl).Err()
}

func (r *RedisRegistry) Clear(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, batchKeyPrefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRegistry) HealthCheck(ctx context.Context) string {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

func batchKey(id string) string {
	return batchKeyPrefix + id
}
