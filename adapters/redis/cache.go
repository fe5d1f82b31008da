// Package redis provides a core.Cache shared between processes through
// Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ailearn/learnsync/core"
)

const (
	DefaultPrefix = "learnsync:"
	DefaultTTL    = 5 * time.Minute

	opTimeout = 3 * time.Second
	scanCount = 100
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Prefix   string
	TTL      time.Duration
}

func setDefaults(c *Config) {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
}

// Cache stores entries under a key prefix with a fixed TTL. Expiry is left
// to Redis.
type Cache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration

	hits    int64
	misses  int64
	sets    int64
	deletes int64
}

var _ core.CacheWithStats = (*Cache)(nil)

// Connect dials Redis and pings it before returning.
func Connect(ctx context.Context, cfg Config) (*Cache, error) {
	setDefaults(&cfg)

	opts := &goredis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return New(client, cfg.Prefix, cfg.TTL), nil
}

func New(client *goredis.Client, prefix string, ttl time.Duration) *Cache {
	cfg := Config{Prefix: prefix, TTL: ttl}
	setDefaults(&cfg)
	return &Cache{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}
}

func (c *Cache) key(k string) string { return c.prefix + k }

func (c *Cache) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	value, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		atomic.AddInt64(&c.misses, 1)
		return nil, core.ErrCacheNotFound
	}
	if err != nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, fmt.Errorf("redis get: %w", err)
	}
	atomic.AddInt64(&c.hits, 1)
	return value, nil
}

func (c *Cache) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	atomic.AddInt64(&c.sets, 1)
	return nil
}

func (c *Cache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	atomic.AddInt64(&c.deletes, 1)
	return nil
}

// Clear removes every key under the prefix. Keys of other prefixes sharing
// the database are left alone.
func (c *Cache) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			atomic.AddInt64(&c.deletes, int64(len(keys)))
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Stats reports this process's counters. Size is not tracked since other
// processes write to the same keys.
func (c *Cache) Stats() core.CacheStats {
	return core.CacheStats{
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Sets:    atomic.LoadInt64(&c.sets),
		Deletes: atomic.LoadInt64(&c.deletes),
		TTL:     c.ttl,
	}
}

func (c *Cache) Close() error {
	return c.client.Close()
}
