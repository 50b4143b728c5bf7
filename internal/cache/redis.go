package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// InitRedis connects and pings the server.
func InitRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func NewRedis(rdb *redis.Client, ttl time.Duration) SummaryCache {
	return &redisCache{rdb: rdb, ttl: ttl}
}

func summaryKey(matchID string) string {
	return fmt.Sprintf("roster:summary:%s", matchID)
}

func (c *redisCache) Get(ctx context.Context, matchID string) (*match.Summary, error) {
	raw, err := c.rdb.Get(ctx, summaryKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached summary of %s: %w", matchID, err)
	}
	var s match.Summary
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode cached summary of %s: %w", matchID, err)
	}
	return &s, nil
}

func (c *redisCache) Set(ctx context.Context, summary *match.Summary) error {
	raw, err := msgpack.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary of %s: %w", summary.MatchID, err)
	}
	if err := c.rdb.Set(ctx, summaryKey(summary.MatchID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache summary of %s: %w", summary.MatchID, err)
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, summaryKey(matchID)).Err()
}
