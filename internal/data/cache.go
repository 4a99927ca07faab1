package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"eisim-progress/internal/model"
)

// CacheEntry is one cached parse result.
type CacheEntry struct {
	Results   *model.Results
	ExpiresAt time.Time
}

// ResultsCache keeps parsed results in memory so repeated API requests over
// the same closed run do not re-read every log file. A nil *ResultsCache is
// valid and caches nothing.
type ResultsCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewResultsCache(ttl time.Duration) *ResultsCache {
	return &ResultsCache{
		store: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves cached results if present and not expired.
func (c *ResultsCache) Get(key string) (*model.Results, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists {
		return nil, false
	}
	if c.now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Results, true
}

// Set stores results in the cache.
func (c *ResultsCache) Set(key string, results *model.Results) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &CacheEntry{
		Results:   results,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

// Clear removes all entries and reports how many there were.
func (c *ResultsCache) Clear() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.store)
	c.store = make(map[string]*CacheEntry)
	return n
}

// Prune drops expired entries.
func (c *ResultsCache) Prune() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for key, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, key)
			n++
		}
	}
	return n
}

// RunCleanup prunes expired entries every interval until ctx is done.
func (c *ResultsCache) RunCleanup(ctx context.Context, interval time.Duration) {
	if c == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}

// CacheKeyParams identifies one parse configuration over one directory.
type CacheKeyParams struct {
	Dir              string
	Marker           string
	CumulativeColumn string
	PriceColumn      string
}

// GenerateCacheKey creates a cache key from the parse parameters.
func GenerateCacheKey(params CacheKeyParams) string {
	keyStr := fmt.Sprintf("%s:%s:%s:%s",
		filepath.Clean(params.Dir),
		params.Marker,
		params.CumulativeColumn,
		params.PriceColumn,
	)

	// Hash the key to keep it reasonably sized
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}
