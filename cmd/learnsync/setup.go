package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ailearn/learnsync"
	fileadapter "github.com/ailearn/learnsync/adapters/file"
	pgxadapter "github.com/ailearn/learnsync/adapters/pgx"
	redisadapter "github.com/ailearn/learnsync/adapters/redis"
	"github.com/ailearn/learnsync/config"
	"github.com/ailearn/learnsync/pkg/crypto"
)

// openStorage builds the durable state store named by the config. The
// returned closer releases pools and is never nil.
func openStorage(ctx context.Context, conf config.StorageConfig) (learnsync.Storage, io.Closer, error) {
	switch conf.Driver {
	case config.StorageMemory:
		return learnsync.NewMemoryStorage(), nopCloser{}, nil

	case config.StorageFile:
		var opts []fileadapter.Option
		if conf.Passphrase != "" {
			sealer, err := crypto.NewSealer(conf.Passphrase, crypto.DefaultKDFParams())
			if err != nil {
				return nil, nil, err
			}
			opts = append(opts, fileadapter.WithSealer(sealer))
		}
		storage, err := fileadapter.New(conf.Path, opts...)
		if err != nil {
			return nil, nil, err
		}
		return storage, nopCloser{}, nil

	case config.StoragePostgres:
		pool, err := pgxadapter.Connect(ctx, conf.DSN)
		if err != nil {
			return nil, nil, err
		}
		storage := pgxadapter.New(pool, conf.Namespace)
		if err := storage.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return storage, closerFunc(pool.Close), nil
	}
	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageDriver, conf.Driver)
}

// openCache returns the cache backend and whether caching is on at all.
func openCache(ctx context.Context, conf config.CacheConfig) (learnsync.Cache, bool, io.Closer, error) {
	switch conf.Driver {
	case config.CacheNone:
		return nil, false, nopCloser{}, nil

	case config.CacheMemory:
		return learnsync.NewInMemoryCache(learnsync.CacheConfig{TTL: conf.TTL, MaxSize: conf.MaxSize}), true, nopCloser{}, nil

	case config.CacheRedis:
		cache, err := redisadapter.Connect(ctx, redisadapter.Config{
			Host:     conf.Redis.Host,
			Port:     conf.Redis.Port,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
			Prefix:   conf.Redis.Prefix,
			TTL:      conf.TTL,
		})
		if err != nil {
			return nil, false, nil, err
		}
		return cache, true, cache, nil
	}
	return nil, false, nil, fmt.Errorf("%w: %q", config.ErrUnknownCacheDriver, conf.Driver)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

func logFormat() string {
	format := []string{
		// Timestamp & Request ID
		"${time}|${requestid}",

		// Response metadata
		"${status}|${latency}",

		// Client info
		"${ip}:${port}",

		// Request details
		"${method}|${path}|${queryParams}",

		// errors
		"${errors}",
	}
	return strings.Join(format, "|") + "\n"
}
