package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/metrics"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// Redis stores artifacts as plain string values with a TTL.
type Redis struct {
	client *redis.Client
	addr   string
	ttl    time.Duration
	prefix string
}

var _ hillshade.TileCache = (*Redis)(nil)

func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisWithClient(client, cfg), nil
}

func NewRedisWithClient(client *redis.Client, cfg RedisConfig) *Redis {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "hillshade:"
	}

	return &Redis{
		client: client,
		addr:   cfg.Addr,
		ttl:    ttl,
		prefix: prefix,
	}
}

func (c *Redis) Lookup(ctx context.Context, key string) hillshade.LookupResult {
	defer observe("redis", "lookup", time.Now())

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return hillshade.Miss()
		}
		return hillshade.LookupError(fmt.Errorf("redis get error: %w", err))
	}

	return hillshade.Hit(data)
}

func (c *Redis) Put(ctx context.Context, a hillshade.Artifact) error {
	defer observe("redis", "put", time.Now())

	if err := c.client.Set(ctx, c.prefix+a.Key, a.Data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (c *Redis) Location(key string) string {
	return "redis://" + c.addr + "/" + c.prefix + key
}

// RecordPoolStats exports the client's connection pool counters.
func (c *Redis) RecordPoolStats() {
	stats := c.client.PoolStats()
	metrics.RedisPoolStats.WithLabelValues("hits").Set(float64(stats.Hits))
	metrics.RedisPoolStats.WithLabelValues("misses").Set(float64(stats.Misses))
	metrics.RedisPoolStats.WithLabelValues("total_conns").Set(float64(stats.TotalConns))
	metrics.RedisPoolStats.WithLabelValues("idle_conns").Set(float64(stats.IdleConns))
}

func (c *Redis) Close() error {
	return c.client.Close()
}
