package cache

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/model"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
)

const keyPrefix = "category:"

// CategoryCache stores categories in two tiers: an in-process ccache in front
// of a shared memcached. Memcached is optional.
type CategoryCache interface {
	Get(slug string) (*model.Category, bool)
	Set(category *model.Category)
	Delete(slug string)
}

type categoryCache struct {
	local    *ccache.Cache[*model.Category]
	memcache *memcache.Client
	ttl      time.Duration
	log      *logger.Logger
}

// NewCategoryCache builds the cache. mc may be nil, in which case only the
// local tier is used.
func NewCategoryCache(mc *memcache.Client, size int, ttl time.Duration, log *logger.Logger) CategoryCache {
	if size <= 0 {
		size = 1000
	}
	return &categoryCache{
		local:    ccache.New(ccache.Configure[*model.Category]().MaxSize(int64(size))),
		memcache: mc,
		ttl:      ttl,
		log:      log,
	}
}

func cacheKey(slug string) string {
	return keyPrefix + strings.ToLower(strings.ReplaceAll(strings.TrimSpace(slug), " ", "_"))
}

func (c *categoryCache) Get(slug string) (*model.Category, bool) {
	key := cacheKey(slug)

	if item := c.local.Get(key); item != nil && !item.Expired() {
		return item.Value(), true
	}

	if c.memcache == nil {
		return nil, false
	}

	item, err := c.memcache.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			c.log.Warn("Memcached get failed", "key", key, "error", err)
		}
		return nil, false
	}

	var category model.Category
	if err := json.Unmarshal(item.Value, &category); err != nil {
		c.log.Warn("Failed to decode cached category", "key", key, "error", err)
		return nil, false
	}

	c.local.Set(key, &category, c.ttl)
	return &category, true
}

func (c *categoryCache) Set(category *model.Category) {
	if category == nil {
		return
	}
	key := cacheKey(category.Slug)
	c.local.Set(key, category, c.ttl)

	if c.memcache == nil {
		return
	}

	data, err := json.Marshal(category)
	if err != nil {
		c.log.Warn("Failed to encode category for cache", "key", key, "error", err)
		return
	}

	if err := c.memcache.Set(&memcache.Item{
		Key:        key,
		Value:      data,
		Expiration: int32(c.ttl / time.Second),
	}); err != nil {
		c.log.Warn("Memcached set failed", "key", key, "error", err)
	}
}

func (c *categoryCache) Delete(slug string) {
	key := cacheKey(slug)
	c.local.Delete(key)

	if c.memcache == nil {
		return
	}
	if err := c.memcache.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		c.log.Warn("Memcached delete failed", "key", key, "error", err)
	}
}
