package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

// TokenCache keeps each user's active token id in Redis so authenticated
// requests skip the auth_tokens lookup.
type TokenCache struct {
	client *redis.Client
}

func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

// Connect parses redisURL, connects and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.MaintNotificationsConfig = &maintnotifications.Config{
		Mode: maintnotifications.ModeDisabled,
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func tokenKey(userID int64) string {
	return "auth:token:" + strconv.FormatInt(userID, 10)
}

// Get reports the cached token id; a miss is not an error.
func (c *TokenCache) Get(ctx context.Context, userID int64) (string, bool, error) {
	val, err := c.client.Get(ctx, tokenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get token: %w", err)
	}
	return val, true, nil
}

func (c *TokenCache) Set(ctx context.Context, userID int64, tokenID string, ttl time.Duration) error {
	return c.client.Set(ctx, tokenKey(userID), tokenID, ttl).Err()
}

func (c *TokenCache) Delete(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, tokenKey(userID)).Err()
}
