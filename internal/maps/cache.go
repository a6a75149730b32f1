// README: Travel estimate cache backed by Redis.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shiftroute/internal/types"
)

const travelKeyPrefix = "shiftroute:travel:"

// Cache stores oracle answers keyed by origin and destination.
type Cache interface {
	Get(ctx context.Context, from, to types.Point) (Estimate, bool, error)
	Set(ctx context.Context, from, to types.Point, est Estimate) error
}

type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, from, to types.Point) (Estimate, bool, error) {
	raw, err := c.redis.Get(ctx, travelKey(from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Estimate{}, false, nil
	}
	if err != nil {
		return Estimate{}, false, fmt.Errorf("redis get: %w", err)
	}
	var est Estimate
	if err := json.Unmarshal(raw, &est); err != nil {
		return Estimate{}, false, fmt.Errorf("decode cached estimate: %w", err)
	}
	return est, true, nil
}

func (c *RedisCache) Set(ctx context.Context, from, to types.Point, est Estimate) error {
	raw, err := json.Marshal(est)
	if err != nil {
		return fmt.Errorf("encode estimate: %w", err)
	}
	return c.redis.Set(ctx, travelKey(from, to), raw, c.ttl).Err()
}

// travelKey keeps 5 decimals (about one metre).
func travelKey(from, to types.Point) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 5, 64) }
	return travelKeyPrefix + f(from.Lat) + "," + f(from.Lng) + ":" + f(to.Lat) + "," + f(to.Lng)
}
