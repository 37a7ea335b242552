// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	defer func() { _ = c.Close() }()
	ctx := t.Context()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "page", []byte("<html>body</html>"), time.Minute)
	got, ok := c.Get(ctx, "page")
	require.True(t, ok)
	assert.Equal(t, []byte("<html>body</html>"), got)

	c.Delete(ctx, "page")
	_, ok = c.Get(ctx, "page")
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer func() { _ = c.Close() }()
	ctx := t.Context()

	c.Set(ctx, "short", []byte("x"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get(ctx, "short")
	assert.False(t, ok, "expired entry should not be returned")
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	ctx := t.Context()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "page", []byte("cached body"), time.Minute)
	got, ok := c.Get(ctx, "page")
	require.True(t, ok)
	assert.Equal(t, []byte("cached body"), got)

	// TTL honored after the clock advances past it.
	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "page")
	assert.False(t, ok)
}

func TestRedisCacheConnectFailure(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, err)
}
