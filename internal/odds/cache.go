package odds

import (
	"context"
	"errors"
	"time"

	redisclient "betai/internal/redis"
)

// Cache stores raw upstream bodies.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

type redisCache struct {
	client *redisclient.Client
}

// NewRedisCache adapts the redis client to Cache.
func NewRedisCache(client *redisclient.Client) Cache {
	return redisCache{client: client}
}

func (r redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := r.client.GetBytes(ctx, key)
	if errors.Is(err, redisclient.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

func (r redisCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	return r.client.SetBytes(ctx, key, body, ttl)
}
