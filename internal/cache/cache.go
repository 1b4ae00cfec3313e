package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultExpiration = 5 * time.Minute
	cleanupInterval   = 10 * time.Minute
)

// Cache is a typed view over an in-process TTL store.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Delete(key string)
	Flush()
}

type ttlCache[V any] struct {
	store *gocache.Cache
}

// NewTTLCache returns a cache whose entries expire after ttl when Set is
// called with a zero duration.
func NewTTLCache[V any]() Cache[V] {
	return &ttlCache[V]{store: gocache.New(defaultExpiration, cleanupInterval)}
}

func (c *ttlCache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.store.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

func (c *ttlCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, value, ttl)
}

func (c *ttlCache[V]) Delete(key string) {
	c.store.Delete(key)
}

func (c *ttlCache[V]) Flush() {
	c.store.Flush()
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
