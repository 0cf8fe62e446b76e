package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/vet-pain-mcp-server/internal/domain"
)

const advisoryKeyPrefix = "vetpain:"

// CachedAdvisory represents a cached advisory result with metadata
type CachedAdvisory struct {
	Data      *domain.AdvisoryResult `json:"data"`
	CachedAt  time.Time              `json:"cached_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// CacheClient wraps a Redis client with caching for advisory results
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new Redis-backed advisory cache
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// Get retrieves a cached advisory result
func (c *CacheClient) Get(ctx context.Context, key string) (*domain.AdvisoryResult, bool, error) {
	key = advisoryKeyPrefix + key

	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get advisory cache: %w", err)
	}

	var cached CachedAdvisory
	if err := json.Unmarshal([]byte(val), &cached); err != nil || cached.Data == nil {
		// corrupted entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set caches an advisory result. A zero ttl uses the configured default.
func (c *CacheClient) Set(ctx context.Context, key string, result *domain.AdvisoryResult, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := time.Now()
	jsonData, err := json.Marshal(CachedAdvisory{
		Data:      result,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal advisory cache data: %w", err)
	}

	return c.redis.Set(ctx, advisoryKeyPrefix+key, jsonData, ttl).Err()
}

// Invalidate removes a cached advisory result
func (c *CacheClient) Invalidate(ctx context.Context, key string) error {
	return c.redis.Del(ctx, advisoryKeyPrefix+key).Err()
}

// GetStats returns cache statistics
func (c *CacheClient) GetStats(ctx context.Context) (map[string]interface{}, error) {
	info, err := c.redis.Info(ctx, "memory", "stats").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	return map[string]interface{}{
		"backend":     "redis",
		"memory_info": info,
		"pool_stats":  c.redis.PoolStats(),
	}, nil
}

// Ping checks if Redis connection is alive
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.redis.Close()
}

// MemoryCache keeps advisory results in a bounded in-process LRU with expiry.
// Entries expire after the cache-wide TTL regardless of the ttl passed to Set.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.AdvisoryResult]
}

// NewMemoryCache creates an in-memory advisory cache
func NewMemoryCache(config domain.CacheConfig) *MemoryCache {
	size := config.MemoryMaxItems
	if size <= 0 {
		size = 256
	}
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.AdvisoryResult](size, nil, ttl),
	}
}

// Get retrieves a cached advisory result
func (m *MemoryCache) Get(_ context.Context, key string) (*domain.AdvisoryResult, bool, error) {
	result, ok := m.lru.Get(key)
	return result, ok, nil
}

// Set caches an advisory result
func (m *MemoryCache) Set(_ context.Context, key string, result *domain.AdvisoryResult, _ time.Duration) error {
	m.lru.Add(key, result)
	return nil
}

// Len returns the number of live entries
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// NewAdvisoryCache returns a Redis cache when a URL is configured and an in-memory
// cache otherwise
func NewAdvisoryCache(config domain.CacheConfig) (domain.AdvisoryCache, error) {
	if config.RedisURL == "" {
		return NewMemoryCache(config), nil
	}
	client, err := NewCacheClient(config)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var (
	_ domain.AdvisoryCache = (*CacheClient)(nil)
	_ domain.AdvisoryCache = (*MemoryCache)(nil)
)
