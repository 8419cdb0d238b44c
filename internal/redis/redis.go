package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Client struct {
	rdb *redis.Client
	log *logrus.Entry
}

func Initialize(ctx context.Context, redisURL string, log *logrus.Entry) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	c := New(redis.NewClient(opt), log)
	if err := c.Ping(ctx); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Redis connected successfully")
	return c, nil
}

// New wraps an existing go-redis client.
func New(rdb *redis.Client, log *logrus.Entry) *Client {
	return &Client{rdb: rdb, log: log.WithField("component", "redis")}
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
