package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache хранит снимок индекса в Redis как JSON с TTL.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, bucket, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		key:    fmt.Sprintf("newspods:audio-index:%s/%s", bucket, cleanPrefix(prefix)),
		ttl:    ttl,
	}
}

func (c *RedisCache) Load(ctx context.Context) ([]Object, bool, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", c.key, err)
	}
	var list []Object
	if err := json.Unmarshal(val, &list); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", c.key, err)
	}
	return list, true, nil
}

func (c *RedisCache) Save(ctx context.Context, objects []Object) error {
	data, err := json.Marshal(objects)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}
