package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCache(t *testing.T) {
	config := LocalConfig{
		MaxSize:           2,
		DefaultExpiration: 5 * time.Minute,
	}
	c := NewLocalCache(config)
	defer c.Close()
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test_key", []byte("test_value"), time.Minute))
		v, ok := c.Get(ctx, "test_key")
		require.True(t, ok)
		assert.Equal(t, "test_value", string(v))
	})

	t.Run("Evicts least recently used", func(t *testing.T) {
		require.NoError(t, c.Clear(ctx))
		_ = c.Set(ctx, "a", []byte("1"), 0)
		_ = c.Set(ctx, "b", []byte("2"), 0)
		_, _ = c.Get(ctx, "a")
		_ = c.Set(ctx, "c", []byte("3"), 0)

		_, okA := c.Get(ctx, "a")
		_, okB := c.Get(ctx, "b")
		assert.True(t, okA)
		assert.False(t, okB)
	})

	t.Run("Expires lazily", func(t *testing.T) {
		lc := c.(*localCache)
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		lc.now = func() time.Time { return base }
		defer func() { lc.now = time.Now }()

		_ = c.Set(ctx, "short", []byte("x"), time.Second)
		_, ok := c.Get(ctx, "short")
		assert.True(t, ok)

		lc.now = func() time.Time { return base.Add(2 * time.Second) }
		_, ok = c.Get(ctx, "short")
		assert.False(t, ok)
	})
}

func TestGoCache(t *testing.T) {
	c := NewGoCache(LocalConfig{DefaultExpiration: time.Minute, CleanupInterval: time.Minute})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.(*goCacheWrapper).ItemCount())
}

func TestLayeredCacheBackfillsLocal(t *testing.T) {
	local := NewLocalCache(LocalConfig{MaxSize: 10})
	remote := NewLocalCache(LocalConfig{MaxSize: 10})
	c := NewLayeredCache(local, remote, time.Minute)
	ctx := context.Background()

	require.NoError(t, remote.Set(ctx, "k", []byte("remote"), time.Hour))
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "remote", string(v))

	v, ok = local.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "remote", string(v))

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok = remote.Get(ctx, "k")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	type reading struct {
		City string  `json:"city"`
		AQI  float64 `json:"aqi"`
	}
	c := NewLocalCache(LocalConfig{})
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, c, "r", reading{City: "Chennai", AQI: 42}, time.Minute))
	var got reading
	require.True(t, GetJSON(ctx, c, "r", &got))
	assert.Equal(t, reading{City: "Chennai", AQI: 42}, got)

	_ = c.Set(ctx, "broken", []byte("{"), time.Minute)
	assert.False(t, GetJSON(ctx, c, "broken", &got))
}

func TestNewCacheTypes(t *testing.T) {
	c, err := NewCache(Config{Type: "gocache"})
	require.NoError(t, err)
	assert.IsType(t, &goCacheWrapper{}, c)

	_, err = NewCache(Config{Type: "memcached"})
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewRedisCache(RedisConfig{Addr: addr, Prefix: "ecowatch-test:", DialTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(v))
	require.NoError(t, c.Clear(ctx))
}
