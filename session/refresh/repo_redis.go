package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jrsteele09/storefront-relay/internal/errors"
)

const (
	redisKeyPrefix     = "relay:rotation:"
	redisRevokedPrefix = "relay:revoked:"
)

// RedisRepo shares rotations between relay instances
type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Repo = (*RedisRepo)(nil)

func NewRedisRepo(client *redis.Client, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, ttl: ttl}
}

func (r *RedisRepo) Upsert(ctx context.Context, key string, rotation Rotation) error {
	data, err := json.Marshal(rotation)
	if err != nil {
		return fmt.Errorf("[RedisRepo Upsert] encode rotation: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Upsert] %w", err)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, key string) (*Rotation, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisRepo Get] %w", err)
	}
	var rotation Rotation
	if err := json.Unmarshal(data, &rotation); err != nil {
		return nil, fmt.Errorf("[RedisRepo Get] decode rotation: %w", err)
	}
	return &rotation, nil
}

func (r *RedisRepo) Revoke(ctx context.Context, key string) error {
	if err := r.client.Set(ctx, redisRevokedPrefix+key, 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Revoke] %w", err)
	}
	return nil
}

func (r *RedisRepo) IsRevoked(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, redisRevokedPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("[RedisRepo IsRevoked] %w", err)
	}
	return n > 0, nil
}
