package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storefront-checkout/pkg/config"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestEventDeduper(t *testing.T) {
	client, mr := setupTestRedis(t)
	d := NewEventDeduper(client, "")
	ctx := context.Background()

	seen, err := d.Seen(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, d.MarkProcessed(ctx, "stripe", "evt_1", time.Hour))

	seen, err = d.Seen(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	// mismo id en otro proveedor es otro evento
	seen, err = d.Seen(ctx, "paypal", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	mr.FastForward(2 * time.Hour)
	seen, err = d.Seen(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "la marca vence con el TTL")
}

func TestEventDeduper_RedisCaido(t *testing.T) {
	client, mr := setupTestRedis(t)
	d := NewEventDeduper(client, "")
	mr.Close()

	_, err := d.Seen(context.Background(), "stripe", "evt_1")
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewRateLimiter(client, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok, "el límite es por clave")

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	assert.True(t, mr.TTL(keys[0]) > 0)
}

func TestNewClient_SinServidor(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
