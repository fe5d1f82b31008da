package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ailearn/learnsync/core"
)

func newTestCache(t *testing.T, prefix string, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, prefix, ttl), mr
}

func TestCacheSetGet(t *testing.T) {
	// Arrange
	c, mr := newTestCache(t, "", 0)

	// Act
	require.NoError(t, c.Set("course:1", []byte(`{"id":1}`)))
	got, err := c.Get("course:1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(got))
	assert.True(t, mr.Exists(DefaultPrefix+"course:1"))
	assert.Equal(t, DefaultTTL, mr.TTL(DefaultPrefix+"course:1"))
}

func TestCacheMiss(t *testing.T) {
	c, _ := newTestCache(t, "", 0)

	_, err := c.Get("course:404")

	assert.ErrorIs(t, err, core.ErrCacheNotFound)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestCacheExpiry(t *testing.T) {
	// Requirement: an expired entry reads as a miss
	c, mr := newTestCache(t, "t:", time.Minute)
	require.NoError(t, c.Set("lessons", []byte("[]")))

	mr.FastForward(2 * time.Minute)
	_, err := c.Get("lessons")

	assert.ErrorIs(t, err, core.ErrCacheNotFound)
}

func TestCacheDelete(t *testing.T) {
	c, _ := newTestCache(t, "", 0)
	require.NoError(t, c.Set("profile:me", []byte("{}")))

	require.NoError(t, c.Delete("profile:me"))
	require.NoError(t, c.Delete("profile:me"))

	_, err := c.Get("profile:me")
	assert.ErrorIs(t, err, core.ErrCacheNotFound)
}

func TestCacheClearOnlyTouchesPrefix(t *testing.T) {
	// Arrange
	c, mr := newTestCache(t, "ls:", time.Minute)
	for i := 0; i < 250; i++ {
		require.NoError(t, c.Set("course:"+strconv.Itoa(i), []byte("x")))
	}
	require.NoError(t, mr.Set("other:key", "keep"))

	// Act
	err := c.Clear()

	// Assert
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)
	assert.True(t, mr.Exists("other:key"))
}

func TestCacheStats(t *testing.T) {
	c, _ := newTestCache(t, "", 0)
	c.Set("a", []byte("1"))
	c.Get("a")
	c.Get("a")
	c.Get("b")

	stats := c.Stats()

	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, DefaultTTL, stats.TTL)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	c, err := Connect(context.Background(), Config{Host: mr.Host(), Port: port, Prefix: "x:"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("k", []byte("v")))
	assert.True(t, mr.Exists("x:k"))
}

func TestConnectUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	mr.Close()

	_, err := Connect(context.Background(), Config{Host: "127.0.0.1", Port: port})

	assert.Error(t, err)
}
