package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	// DefaultItemTTL is the fallback expiry for point-cache entries. TTL is
	// an independent eviction path; correctness comes from explicit
	// invalidation before a mutation is acknowledged.
	DefaultItemTTL = 1 * time.Hour

	itemCacheKeyPrefix = "catalog:item"
)

// CachedItem is the denormalized read model stored in Redis, one entry per
// item id. It deliberately mirrors the domain snapshot without importing it.
type CachedItem struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category,omitempty"`
	Status      string          `json:"status"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   string          `json:"created_by"`
	UpdatedAt   time.Time       `json:"updated_at"`
	UpdatedBy   string          `json:"updated_by"`
	ViewCount   int64           `json:"view_count"`
	Rating      decimal.Decimal `json:"rating"`
	ReviewCount int64           `json:"review_count"`
}

// ItemCache is the Redis-backed point cache, keyed "catalog:item:{id}".
// Values are JSON documents with a TTL; mutations evict the entry before the
// write is acknowledged to the caller.
type ItemCache struct {
	client *RedisClient
	ttl    time.Duration
}

// NewItemCache creates an ItemCache backed by the given RedisClient.
// A non-positive ttl falls back to DefaultItemTTL.
func NewItemCache(r *RedisClient, ttl time.Duration) *ItemCache {
	if ttl <= 0 {
		ttl = DefaultItemTTL
	}
	return &ItemCache{client: r, ttl: ttl}
}

// Get retrieves a cached item by id.
// Returns redis.Nil when the key does not exist or has expired.
func (c *ItemCache) Get(ctx context.Context, id uuid.UUID) (*CachedItem, error) {
	raw, err := c.client.Client().Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var item CachedItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &item, nil
}

// Set writes a cached item with the configured TTL.
func (c *ItemCache) Set(ctx context.Context, item *CachedItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Client().Set(ctx, c.key(item.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete evicts the point entry for id. Missing keys are not an error.
func (c *ItemCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Client().Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *ItemCache) key(id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", itemCacheKeyPrefix, id)
}
