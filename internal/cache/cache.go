// Package cache provides the shared key-value cache holding derived
// announcement strings.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize bounds the number of entries when no size is configured.
const DefaultSize = 1024

// Cache is an in-process LRU. Entries never expire; the least recently used
// one is evicted once the cache is full.
type Cache struct {
	entries *lru.Cache[string, string]
}

// New constructs a cache holding at most size entries.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the value stored under key.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	value, ok := c.entries.Get(key)
	return value, ok, nil
}

// Set stores value under key, replacing any previous value.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.entries.Add(key, value)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.entries.Remove(key)
	return nil
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
