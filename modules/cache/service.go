// Package cache provides the Redis-backed snapshot cache used by the task store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono/pkg/storage"
)

// CacheService is the cache port handed to other modules.
type CacheService interface {
	// Get decodes the value stored under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key with the default TTL.
	Set(ctx context.Context, key string, value any) error

	// SetWithTTL stores value under key with a custom TTL.
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Stats returns hit and miss counts since start.
	Stats() Stats

	// Close closes the underlying storage connection.
	Close() error
}

// Stats counts cache lookups.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

type cacheService struct {
	storage storage.Storage
	prefix  string
	ttl     time.Duration
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewCacheService wraps s, namespacing every key with prefix.
func NewCacheService(s storage.Storage, prefix string, ttl time.Duration) CacheService {
	return &cacheService{
		storage: s,
		prefix:  prefix,
		ttl:     ttl,
	}
}

func (c *cacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.storage.GetWithContext(ctx, c.prefix+key)
	if err != nil {
		return false, fmt.Errorf("cache get error: %w", err)
	}
	if len(data) == 0 {
		c.misses.Add(1)
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// An undecodable entry is treated as a miss and dropped.
		c.misses.Add(1)
		if err := c.storage.DeleteWithContext(ctx, c.prefix+key); err != nil {
			log.Printf("[cache] Warning: failed to drop undecodable entry %s: %v", c.prefix+key, err)
		}
		return false, nil
	}
	c.hits.Add(1)
	return true, nil
}

func (c *cacheService) Set(ctx context.Context, key string, value any) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

func (c *cacheService) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.storage.SetWithContext(ctx, c.prefix+key, data, ttl); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *cacheService) Delete(ctx context.Context, key string) error {
	if err := c.storage.DeleteWithContext(ctx, c.prefix+key); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (c *cacheService) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *cacheService) Close() error {
	return c.storage.Close()
}
