// internal/common/aws/endpoint_cache.go
package aws

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const endpointKeyPrefix = "push:endpoint:"

// RedisEndpointCache stores endpoint ARNs under a hash of the device token.
type RedisEndpointCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisEndpointCache(client redis.Cmdable, ttl time.Duration) *RedisEndpointCache {
	return &RedisEndpointCache{client: client, ttl: ttl}
}

func endpointKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return endpointKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisEndpointCache) Get(ctx context.Context, token string) (string, bool, error) {
	arn, err := c.client.Get(ctx, endpointKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return arn, true, nil
}

func (c *RedisEndpointCache) Set(ctx context.Context, token, endpointARN string) error {
	return c.client.Set(ctx, endpointKey(token), endpointARN, c.ttl).Err()
}

func (c *RedisEndpointCache) Delete(ctx context.Context, token string) error {
	return c.client.Del(ctx, endpointKey(token)).Err()
}
