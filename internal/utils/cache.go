package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem[V any] struct {
	Data      V
	ExpiresAt time.Time
}

// Cache 带 TTL 的本地 LRU 缓存，并发安全
type Cache[V any] struct {
	lruCache *lru.Cache[string, CacheItem[V]]
	ttl      time.Duration
}

// NewCache 创建容量为 size 的缓存，size 非法时退回 500
func NewCache[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, CacheItem[V]](size)
	if err != nil {
		logrus.Fatalf("Failed to create LRU cache: %v", err)
	}
	return &Cache[V]{lruCache: l, ttl: ttl}
}

// Set 写入缓存，使用默认 TTL
func (c *Cache[V]) Set(key string, data V) {
	c.lruCache.Add(key, CacheItem[V]{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	})
}

// Get 获取缓存，不存在或已过期时 ok 为 false
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.lruCache.Get(key)
	if !ok {
		return zero, false
	}

	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return zero, false
	}

	return val.Data, true
}
