package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweeney/dome-weather/internal/weather"
)

// DefaultRedisTTL expires the cached record if the daemon stops updating it.
const DefaultRedisTTL = 10 * time.Minute

// Redis keys.
const (
	KeyLatest = "dome:weather:latest"
	KeySafe   = "dome:weather:safe"
)

// ErrNoRecord is returned by Latest when nothing is cached.
var ErrNoRecord = errors.New("no cached record")

// RedisCache publishes the latest record and safe flag with a TTL, so a stale
// daemon reads as "no data" rather than "safe".
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr and checks the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		MaxRetries: 3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return newRedisCache(client, ttl), nil
}

func newRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Name implements Sink.
func (r *RedisCache) Name() string { return "redis" }

// Save implements Sink.
func (r *RedisCache) Save(ctx context.Context, rec weather.Record) error {
	payload, err := weather.FormatRecord(rec)
	if err != nil {
		return fmt.Errorf("format record: %w", err)
	}
	safe := "0"
	if rec.Verdict.Safe {
		safe = "1"
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, KeyLatest, payload, r.ttl)
	pipe.Set(ctx, KeySafe, safe, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache record %s: %w", rec.ID, err)
	}
	return nil
}

// Latest returns the cached record.
func (r *RedisCache) Latest(ctx context.Context) (weather.Record, error) {
	data, err := r.client.Get(ctx, KeyLatest).Bytes()
	if errors.Is(err, redis.Nil) {
		return weather.Record{}, ErrNoRecord
	}
	if err != nil {
		return weather.Record{}, fmt.Errorf("get latest: %w", err)
	}
	return weather.ParseRecord(data)
}

// Close implements Sink.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
