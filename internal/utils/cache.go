package utils

import (
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache 带过期时间的进程内 LRU 缓存
type TTLCache[V any] struct {
	entries *lru.Cache[string, cacheEntry[V]]
	ttl     time.Duration
}

// NewTTLCache 创建容量为 size、统一有效期为 ttl 的缓存
func NewTTLCache[V any](size int, ttl time.Duration) *TTLCache[V] {
	l, err := lru.New[string, cacheEntry[V]](size)
	if err != nil {
		log.Fatalf("Failed to create LRU cache: %v", err)
	}
	return &TTLCache[V]{entries: l, ttl: ttl}
}

func (c *TTLCache[V]) Set(key string, value V) {
	c.entries.Add(key, cacheEntry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Get 不存在或已过期时 ok 为 false
func (c *TTLCache[V]) Get(key string) (value V, ok bool) {
	e, found := c.entries.Get(key)
	if !found {
		return value, false
	}
	if time.Now().After(e.expiresAt) {
		c.entries.Remove(key)
		return value, false
	}
	return e.value, true
}

func (c *TTLCache[V]) Delete(key string) {
	c.entries.Remove(key)
}
