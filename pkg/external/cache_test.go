package external

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vet-pain-mcp-server/internal/domain"
)

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache(domain.CacheConfig{MemoryMaxItems: 2, DefaultTTL: time.Hour})
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "a", &domain.AdvisoryResult{FreeText: "first"}, 0))
	require.NoError(t, cache.Set(ctx, "b", &domain.AdvisoryResult{FreeText: "second"}, 0))

	got, found, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", got.FreeText)

	// "b" is now the least recently used entry
	require.NoError(t, cache.Set(ctx, "c", &domain.AdvisoryResult{FreeText: "third"}, 0))
	assert.Equal(t, 2, cache.Len())
	_, found, _ = cache.Get(ctx, "b")
	assert.False(t, found)
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache(domain.CacheConfig{MemoryMaxItems: 4, DefaultTTL: 20 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", &domain.AdvisoryResult{FreeText: "short lived"}, 0))
	time.Sleep(60 * time.Millisecond)

	_, found, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewAdvisoryCache_DefaultsToMemory(t *testing.T) {
	cache, err := NewAdvisoryCache(domain.CacheConfig{})
	require.NoError(t, err)
	_, ok := cache.(*MemoryCache)
	assert.True(t, ok)
}

func TestNewAdvisoryCache_InvalidRedisURL(t *testing.T) {
	_, err := NewAdvisoryCache(domain.CacheConfig{RedisURL: "://not-a-url"})
	assert.Error(t, err)
}

func TestCacheClient_Redis(t *testing.T) {
	redisURL := os.Getenv("VETPAIN_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("VETPAIN_TEST_REDIS_URL not set")
	}

	client, err := NewCacheClient(domain.CacheConfig{RedisURL: redisURL, DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	key := "test:" + time.Now().Format(time.RFC3339Nano)
	defer client.Invalidate(ctx, key)

	_, found, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.Set(ctx, key, &domain.AdvisoryResult{ClinicalAnalysis: "cached"}, 0))
	got, found, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "cached", got.ClinicalAnalysis)
}
