package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolio-simulator/internal/models"
)

// RedisCache keeps quotes in Redis with a per-entry TTL, so several
// dashboard processes can share one price cache.
type RedisCache struct {
	redis      *redis.Client
	expiration time.Duration
}

func NewRedisClient(host string, port int, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rdb, nil
}

func NewRedisCache(client *redis.Client, expiration time.Duration) *RedisCache {
	return &RedisCache{redis: client, expiration: expiration}
}

func (c *RedisCache) Set(ctx context.Context, quote models.Quote) error {
	raw, err := json.Marshal(quote)
	if err != nil {
		return err
	}

	if err := c.redis.Set(ctx, quoteKey(quote.Symbol), raw, c.expiration).Err(); err != nil {
		slog.Error("redis set failed", slog.String("symbol", quote.Symbol), slog.String("err", err.Error()))
		return err
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (models.Quote, error) {
	res, err := c.redis.Get(ctx, quoteKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Quote{}, ErrNotFound
	}
	if err != nil {
		slog.Error("redis get failed", slog.String("symbol", symbol), slog.String("err", err.Error()))
		return models.Quote{}, err
	}

	var q models.Quote
	if err := json.Unmarshal([]byte(res), &q); err != nil {
		return models.Quote{}, fmt.Errorf("decode cached quote: %w", err)
	}
	return q, nil
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}
