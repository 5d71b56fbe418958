// Package cache keeps the last fetch result per subreddit for a fixed TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/qepting91/redditboard/internal/domain"
	"github.com/qepting91/redditboard/internal/storage"
)

// TTL is how long a cached listing is served before it is treated as absent.
const TTL = 5 * time.Minute

// KeyPrefix namespaces cache entries in the shared store.
const KeyPrefix = "redditboard_"

// Cache is a read-through store of CacheEntry values. Staleness is checked on read;
// nothing is evicted in the background.
type Cache struct {
	kv  storage.KV
	ttl time.Duration
	now func() time.Time
}

type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func New(kv storage.KV, opts ...Option) *Cache {
	c := &Cache{kv: kv, ttl: TTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func key(name string) string {
	return KeyPrefix + name
}

// Get returns the entry for name if present, decodable and fresh.
func (c *Cache) Get(ctx context.Context, name string) (domain.CacheEntry, bool) {
	raw, ok, err := c.kv.Get(ctx, key(name))
	if err != nil {
		slog.Warn("Cache read failed", "sub", name, "err", err)
		return domain.CacheEntry{}, false
	}
	if !ok {
		return domain.CacheEntry{}, false
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		slog.Warn("Corrupt cache entry ignored", "sub", name, "err", err)
		return domain.CacheEntry{}, false
	}

	if c.now().UnixMilli()-entry.LastRefreshed > c.ttl.Milliseconds() {
		return domain.CacheEntry{}, false
	}
	return entry, true
}

// Put stamps entry with the current time and overwrites whatever was stored for name.
// The stamped entry is returned.
func (c *Cache) Put(ctx context.Context, name string, entry domain.CacheEntry) (domain.CacheEntry, error) {
	entry.LastRefreshed = c.now().UnixMilli()
	raw, err := json.Marshal(entry)
	if err != nil {
		return entry, fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.kv.Set(ctx, key(name), raw); err != nil {
		return entry, fmt.Errorf("write cache entry %s: %w", name, err)
	}
	return entry, nil
}

func (c *Cache) Delete(ctx context.Context, name string) error {
	if err := c.kv.Delete(ctx, key(name)); err != nil {
		return fmt.Errorf("delete cache entry %s: %w", name, err)
	}
	return nil
}
