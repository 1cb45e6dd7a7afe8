package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/profile-sales-bot/internal/config"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

func setupTestCache(t *testing.T) *Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache
}

func TestSetAndGet(t *testing.T) {
	cache := setupTestCache(t)

	expected := models.OrderDraft{
		BuyerID:  101,
		Username: "buyer",
		State:    models.DraftStateIdentifier,
	}
	err := cache.Set("draft:101", expected, time.Minute)
	require.NoError(t, err)

	var actual models.OrderDraft
	found, err := cache.Get("draft:101", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected.BuyerID, actual.BuyerID)
	assert.Equal(t, expected.State, actual.State)
}

func TestGetNotFound(t *testing.T) {
	cache := setupTestCache(t)

	var out models.OrderDraft
	found, err := cache.Get("no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache := setupTestCache(t)

	err := cache.Set("key", "value", time.Minute)
	require.NoError(t, err)

	err = cache.Invalidate("key")
	require.NoError(t, err)

	var out string
	found, err := cache.Get("key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache := setupTestCache(t)

	err := cache.Db.Set(context.Background(), "bad", []byte("not-json"), time.Minute).Err()
	require.NoError(t, err)

	var out models.OrderDraft
	_, err = cache.Get("bad", &out)
	assert.Error(t, err)
}
