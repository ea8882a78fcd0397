package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/domain"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCartStoreRoundTripKeepsOrder(t *testing.T) {
	ctx := context.Background()
	_, client := setupTestRedis(t)
	store := NewCartStore(client, time.Hour, zap.NewNop())

	lines := []domain.CartLine{
		{ProductCode: "HN1003", Quantity: 1},
		{ProductCode: "HN1001", Quantity: 2},
		{ProductCode: "AC2001", Quantity: 5},
	}
	require.NoError(t, store.Save(ctx, "c1", lines))

	got, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, lines, got)
}

func TestCartStoreOverwriteAndClear(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewCartStore(client, time.Hour, zap.NewNop())

	require.NoError(t, store.Save(ctx, "c1", []domain.CartLine{{ProductCode: "HN1001", Quantity: 2}, {ProductCode: "HN1003", Quantity: 1}}))
	require.NoError(t, store.Save(ctx, "c1", []domain.CartLine{{ProductCode: "HN1003", Quantity: 4}}))

	got, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{{ProductCode: "HN1003", Quantity: 4}}, got)

	require.NoError(t, store.Save(ctx, "c1", nil))
	assert.False(t, mr.Exists(keyPrefix+"c1"))

	got, err = store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCartStoreExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewCartStore(client, time.Hour, zap.NewNop())

	require.NoError(t, store.Save(ctx, "c1", []domain.CartLine{{ProductCode: "HN1001", Quantity: 1}}))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"c1"))

	mr.FastForward(2 * time.Hour)
	got, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCartStoreSkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewCartStore(client, 0, zap.NewNop())

	mr.HSet(keyPrefix+"c1", "HN1001", "2", "BAD", "lots")
	got, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{{ProductCode: "HN1001", Quantity: 2}}, got)
}

func TestNewClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()

	client, err := NewClient(context.Background(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = NewClient(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
