package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/testutil"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedis_RoundTrip(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	c := NewRedis(client, 45*time.Second, testutil.MakeNoopLogger())
	ctx := context.Background()
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, ok := c.Get(ctx, "week-1/essential/2")
	assert.False(t, ok)

	c.Set(ctx, "week-1/essential/2", model.CachedURL{URL: "https://signed", IssuedAt: issued})

	got, ok := c.Get(ctx, "week-1/essential/2")
	require.True(t, ok)
	assert.Equal(t, "https://signed", got.URL)
	assert.True(t, issued.Equal(got.IssuedAt))
	assert.True(t, mr.Exists("signed-url:week-1/essential/2"))
}

func TestRedis_ExpiresWithTTL(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	c := NewRedis(client, 45*time.Second, testutil.MakeNoopLogger())
	ctx := context.Background()

	c.Set(ctx, "k", model.CachedURL{URL: "u", IssuedAt: time.Now()})
	mr.FastForward(46 * time.Second)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedis_CorruptEntryIsMiss(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	require.NoError(t, mr.Set("signed-url:k", "not-json"))

	c := NewRedis(client, time.Minute, testutil.MakeNoopLogger())
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestRedis_UnavailableIsMiss(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer func() { _ = client.Close() }()
	mr.Close()

	c := NewRedis(client, time.Minute, testutil.MakeNoopLogger())
	c.Set(context.Background(), "k", model.CachedURL{URL: "u", IssuedAt: time.Now()})
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}
