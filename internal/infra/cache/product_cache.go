package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/domain"

	"github.com/go-redis/redis/v8"
)

type RedisProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProductCache(rdb *redis.Client, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{rdb: rdb, ttl: ttl}
}

func productKey(id uint64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *RedisProductCache) Get(ctx context.Context, id uint64) (*domain.Product, bool) {
	cached, err := c.rdb.Get(ctx, productKey(id)).Result()
	if err != nil {
		return nil, false
	}
	var p domain.Product
	if err := json.Unmarshal([]byte(cached), &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *RedisProductCache) Set(ctx context.Context, p *domain.Product) {
	if data, err := json.Marshal(p); err == nil {
		c.rdb.Set(ctx, productKey(p.ID), data, c.ttl)
	}
}

func (c *RedisProductCache) Invalidate(ctx context.Context, id uint64) {
	c.rdb.Del(ctx, productKey(id))
}

type NopProductCache struct{}

func (NopProductCache) Get(context.Context, uint64) (*domain.Product, bool) { return nil, false }
func (NopProductCache) Set(context.Context, *domain.Product)                {}
func (NopProductCache) Invalidate(context.Context, uint64)                  {}
