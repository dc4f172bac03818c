package geo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ammario/tlru"
)

// CachedResolver memoizes another resolver's answers, misses included.
type CachedResolver struct {
	next Resolver
	ttl  time.Duration

	mu    sync.Mutex
	cache *tlru.Cache[string, string]
}

func NewCachedResolver(next Resolver, size int, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		next:  next,
		ttl:   ttl,
		cache: tlru.New[string](tlru.ConstantCost[string], size),
	}
}

func (c *CachedResolver) Lookup(ctx context.Context, identifier string) (string, error) {
	c.mu.Lock()
	code, _, ok := c.cache.Get(identifier)
	c.mu.Unlock()
	if ok {
		if code == "" {
			return "", ErrNotFound
		}
		return code, nil
	}

	code, err := c.next.Lookup(ctx, identifier)
	if err != nil && !errors.Is(err, ErrNotFound) {
		// Transient failures are not cached.
		return "", err
	}

	c.mu.Lock()
	c.cache.Set(identifier, code, c.ttl)
	c.mu.Unlock()

	if code == "" {
		return "", ErrNotFound
	}
	return code, nil
}
