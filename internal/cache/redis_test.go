package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortsos/shortsos/internal/config"
	"github.com/shortsos/shortsos/internal/models"
)

type testStruct struct {
	Name string
	Age  int
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache, err := InitServer(context.Background(), config.RedisConnection{RedisAddress: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := testStruct{Name: "Alice", Age: 30}
	require.NoError(t, cache.Set(ctx, "user:1", expected, time.Minute))

	var actual testStruct
	found, err := cache.Get(ctx, "user:1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out testStruct
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "key"))

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err())

	var out testStruct
	found, err := cache.Get(ctx, "bad", &out)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestInitServer_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = InitServer(context.Background(), config.RedisConnection{RedisAddress: addr, RedisDialTimeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.InitServer")
}

func TestAccounts_RoundTripAndExpiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	accounts := NewAccounts(cache, time.Minute)
	ctx := context.Background()

	expiry := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	acc := &models.Account{
		UserID:             "u-1",
		SubscriptionTier:   models.TierPro,
		SubscriptionStatus: models.StatusActive,
		PlanExpiry:         &expiry,
		Credits:            42,
	}

	got, err := accounts.GetAccount(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, accounts.SetAccount(ctx, acc))
	got, err = accounts.GetAccount(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, acc.SubscriptionTier, got.SubscriptionTier)
	assert.Equal(t, acc.Credits, got.Credits)
	assert.True(t, expiry.Equal(*got.PlanExpiry))

	mr.FastForward(2 * time.Minute)
	got, err = accounts.GetAccount(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, accounts.SetAccount(ctx, acc))
	require.NoError(t, accounts.InvalidateAccount(ctx, "u-1"))
	got, err = accounts.GetAccount(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
