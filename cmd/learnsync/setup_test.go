package main

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fileadapter "github.com/ailearn/learnsync/adapters/file"
	redisadapter "github.com/ailearn/learnsync/adapters/redis"
	"github.com/ailearn/learnsync/config"
	"github.com/ailearn/learnsync/core"
)

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		storage, closer, err := openStorage(ctx, config.StorageConfig{Driver: config.StorageMemory})
		require.NoError(t, err)
		defer closer.Close()
		assert.IsType(t, &core.MemoryStorage{}, storage)
	})

	t.Run("sealed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		storage, closer, err := openStorage(ctx, config.StorageConfig{Driver: config.StorageFile, Path: path, Passphrase: "pw"})
		require.NoError(t, err)
		defer closer.Close()

		fs, ok := storage.(*fileadapter.Storage)
		require.True(t, ok)
		assert.Equal(t, path, fs.Path())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := openStorage(ctx, config.StorageConfig{Driver: "tape"})
		assert.ErrorIs(t, err, config.ErrUnknownStorageDriver)
	})
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	t.Run("none disables caching", func(t *testing.T) {
		cache, enabled, _, err := openCache(ctx, config.CacheConfig{Driver: config.CacheNone})
		require.NoError(t, err)
		assert.False(t, enabled)
		assert.Nil(t, cache)
	})

	t.Run("memory", func(t *testing.T) {
		cache, enabled, _, err := openCache(ctx, config.CacheConfig{Driver: config.CacheMemory, TTL: time.Minute, MaxSize: 10})
		require.NoError(t, err)
		assert.True(t, enabled)
		assert.NotNil(t, cache)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		port, err := strconv.Atoi(mr.Port())
		require.NoError(t, err)

		cache, enabled, closer, err := openCache(ctx, config.CacheConfig{
			Driver: config.CacheRedis,
			TTL:    time.Minute,
			Redis:  config.RedisConfig{Host: mr.Host(), Port: port, Prefix: "t:"},
		})
		require.NoError(t, err)
		defer closer.Close()

		assert.True(t, enabled)
		assert.IsType(t, &redisadapter.Cache{}, cache)
	})
}

func TestLogFormat(t *testing.T) {
	f := logFormat()
	assert.Contains(t, f, "${status}")
	assert.NotContains(t, f, "Authorization")
}
