package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tendant/siteuser/pkg/auth0"
)

// RedisCache shares profile entries between processes. Values are JSON encoded
// provider records with a native Redis TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*auth0.User, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var u auth0.User
	if err := json.Unmarshal(val, &u); err != nil {
		return nil, false, fmt.Errorf("profile cache: failed to unmarshal %s: %w", key, err)
	}
	return &u, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, u *auth0.User, ttl time.Duration) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("profile cache: failed to marshal: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}
