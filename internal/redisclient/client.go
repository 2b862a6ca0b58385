package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps Redis for the cross-instance sync-run guard. A SetNX key per
// supplier keeps two service instances from syncing the same supplier at
// once; the TTL releases locks orphaned by a crash before finalize.
type Client struct {
	rdb     *redis.Client
	lockTTL time.Duration
}

// NewClient connects and pings Redis.
func NewClient(addr, password string, db int, lockTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, lockTTL: lockTTL}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func lockKey(supplierID string) string {
	return fmt.Sprintf("sync-lock:%s", supplierID)
}

// Acquire takes the per-supplier run lock. Returns false when another
// instance already holds it.
func (c *Client) Acquire(ctx context.Context, supplierID string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, lockKey(supplierID), "1", c.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sync lock: %w", err)
	}
	return ok, nil
}

// Release drops the per-supplier run lock.
func (c *Client) Release(ctx context.Context, supplierID string) error {
	if err := c.rdb.Del(ctx, lockKey(supplierID)).Err(); err != nil {
		return fmt.Errorf("release sync lock: %w", err)
	}
	return nil
}
