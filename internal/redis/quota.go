package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaCounter keeps usage counters as plain integer keys.
type QuotaCounter struct {
	c *Client
}

func (c *Client) Quota() *QuotaCounter {
	return &QuotaCounter{c: c}
}

// Consume increments key unless that would pass limit. The key expires ttl
// after its first use.
func (q *QuotaCounter) Consume(ctx context.Context, key string, limit int, ttl time.Duration) (int, bool, error) {
	n, err := q.c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	if n == 1 {
		if err := q.c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			q.c.log.WithError(err).WithField("key", key).Warn("set quota expiry")
		}
	}
	if n <= int64(limit) {
		return int(n), true, nil
	}

	n, err = q.c.rdb.Decr(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	return int(n), false, nil
}

func (q *QuotaCounter) Used(ctx context.Context, key string) (int, error) {
	n, err := q.c.rdb.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
