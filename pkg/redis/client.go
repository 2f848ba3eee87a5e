package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"freight-service/pkg/logger"
)

const (
	connectAttempts = 20
	revokedPrefix   = "auth:revoked:"
)

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(ctx context.Context, addr, password string, log logger.ILogger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password})
	for i := 0; i < connectAttempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Info("connected to Redis", logger.String("addr", addr))
			return &Client{rdb: rdb}, nil
		}
		log.Warning("waiting for Redis", logger.Int("attempt", i+1), logger.Error(err))
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("redis: failed to connect after %d attempts", connectAttempts)
}

// RevokeToken blacklists a token id until it would have expired anyway.
func (c *Client) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err()
}

// IsRevoked reports whether the token id was revoked.
func (c *Client) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping is used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
