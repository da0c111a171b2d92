// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// category.go caches category records in Valkey. Every similarity
// recompute and vector generation resolves the main and sub category of a
// listing, so these lookups are the hottest reads in the write path.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bazaar/internal/metrics"
	"bazaar/internal/models"
)

const (
	// categoryKeyPrefix is the Valkey key prefix for cached categories.
	categoryKeyPrefix = "category:"

	// DefaultCategoryTTL is how long a category stays cached.
	DefaultCategoryTTL = 10 * time.Minute
)

// CategorySource loads a category on a cache miss. A missing category is
// (nil, nil).
type CategorySource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// categoryEntry carries the vector, which models.Category keeps out of JSON.
type categoryEntry struct {
	Category models.Category `json:"category"`
	Vector   []float64       `json:"vector"`
}

// CategoryCache is a read-through cache in front of a CategorySource.
// Valkey errors are logged and fall through to the source.
type CategoryCache struct {
	client *redis.Client
	source CategorySource
	ttl    time.Duration
}

// NewCategoryCache creates a category cache backed by the given Valkey client.
func NewCategoryCache(client *redis.Client, source CategorySource, ttl time.Duration) *CategoryCache {
	if ttl == 0 {
		ttl = DefaultCategoryTTL
	}
	return &CategoryCache{client: client, source: source, ttl: ttl}
}

// CategoryKey returns the cache key for a category.
func CategoryKey(id uuid.UUID) string {
	return categoryKeyPrefix + id.String()
}

// FindByID returns the category with its vector, from Valkey when cached.
func (c *CategoryCache) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if cat, ok := c.get(ctx, id); ok {
		metrics.CategoryCacheHits.Inc()
		return cat, nil
	}
	metrics.CategoryCacheMisses.Inc()

	cat, err := c.source.FindByID(ctx, id)
	if err != nil || cat == nil {
		return cat, err
	}
	c.set(ctx, cat)
	return cat, nil
}

func (c *CategoryCache) get(ctx context.Context, id uuid.UUID) (*models.Category, bool) {
	data, err := c.client.Get(ctx, CategoryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("category cache get error", "id", id, "error", err)
		return nil, false
	}

	var e categoryEntry
	if err := json.Unmarshal(data, &e); err != nil {
		slog.Warn("category cache decode error", "id", id, "error", err)
		return nil, false
	}
	e.Category.Vector = e.Vector
	return &e.Category, true
}

func (c *CategoryCache) set(ctx context.Context, cat *models.Category) {
	data, err := json.Marshal(categoryEntry{Category: *cat, Vector: cat.Vector})
	if err != nil {
		slog.Warn("category cache encode error", "id", cat.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, CategoryKey(cat.ID), data, c.ttl).Err(); err != nil {
		slog.Warn("category cache set error", "id", cat.ID, "error", err)
	}
}

// Invalidate removes a single category from the cache.
func (c *CategoryCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.client.Del(ctx, CategoryKey(id)).Err(); err != nil {
		slog.Warn("category cache invalidate error", "id", id, "error", err)
	}
}

// InvalidateAll removes every cached category by scanning for the prefix.
func (c *CategoryCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, categoryKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("category cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("category cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("category cache cleared", "deleted", deleted)
	}
}
