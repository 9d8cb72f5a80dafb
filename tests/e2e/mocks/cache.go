package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TrackingCache is an in-process stand-in for the Redis cache that honours
// expiry and counts calls.
type TrackingCache struct {
	mu        sync.Mutex
	data      map[string]cacheEntry
	GetCalls  int
	Hits      int
	SetCalls  int
	Deletions []string
}

type cacheEntry struct {
	raw    []byte
	expiry time.Time
}

func NewTrackingCache() *TrackingCache {
	return &TrackingCache{data: make(map[string]cacheEntry)}
}

func (c *TrackingCache) Get(ctx context.Context, key string, dest any) error {
	c.mu.Lock()
	c.GetCalls++
	entry, ok := c.data[key]
	if ok && time.Now().Before(entry.expiry) {
		c.Hits++
	} else {
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(entry.raw, dest)
}

func (c *TrackingCache) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++
	c.data[key] = cacheEntry{raw: raw, expiry: time.Now().Add(exp)}
	return nil
}

func (c *TrackingCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.Deletions = append(c.Deletions, k)
	}
	return nil
}

func (c *TrackingCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *TrackingCache) HitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Hits
}

func (c *TrackingCache) Close() error {
	return nil
}
