package orm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type queryCache struct {
	mu      sync.Mutex
	entries map[string]*resultSet
}

func (c *queryCache) get(key string) (*resultSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs, ok := c.entries[key]
	return rs, ok
}

func (c *queryCache) put(key string, rs *resultSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]*resultSet)
	}
	c.entries[key] = rs
}

func (c *queryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// len returns the number of cached result sets.
func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type cacheKey struct{}
type uncachedKey struct{}

// WithQueryCache enables result caching for reads issued with the returned
// context. Any write through the same context clears the cache.
func WithQueryCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheKey{}, &queryCache{})
}

// Uncached returns a context whose reads bypass the query cache.
func Uncached(ctx context.Context) context.Context {
	return context.WithValue(ctx, uncachedKey{}, true)
}

// CachedQueries reports how many result sets the context's query cache holds.
func CachedQueries(ctx context.Context) int {
	if c := cacheFrom(ctx); c != nil {
		return c.len()
	}
	return 0
}

func cacheFrom(ctx context.Context) *queryCache {
	c, _ := ctx.Value(cacheKey{}).(*queryCache)
	return c
}

func readCache(ctx context.Context) *queryCache {
	if bypass, _ := ctx.Value(uncachedKey{}).(bool); bypass {
		return nil
	}
	return cacheFrom(ctx)
}

func queryCacheKey(shard, query string, args []any) string {
	var b strings.Builder
	b.WriteString(shard)
	b.WriteByte('|')
	b.WriteString(query)
	for _, a := range args {
		fmt.Fprintf(&b, "|%T:%v", a, a)
	}
	return b.String()
}
