package cache

import (
	"encoding/json"
	"time"

	"github.com/ppiankov/parishscope/internal/model"
)

// PageCache stores fetched pages on top of a byte cache
type PageCache struct {
	store Cache
	ttl   time.Duration
}

// NewPageCache wraps store; a zero ttl uses the store's default
func NewPageCache(store Cache, ttl time.Duration) *PageCache {
	return &PageCache{store: store, ttl: ttl}
}

// NewPageCacheFromConfig builds the memory+disk page cache, or returns nil when disabled
func NewPageCacheFromConfig(cfg model.CacheConfig) *PageCache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewPageCache(NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), cfg.MemoryTTL)
	}
	return NewPageCache(NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL), cfg.DiskTTL)
}

// Get returns a cached page for url
func (c *PageCache) Get(url string, rendered bool) (*model.RenderedPage, bool) {
	raw, ok := c.store.Get(CacheKey(url, rendered))
	if !ok {
		return nil, false
	}
	var page model.RenderedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false
	}
	return &page, true
}

// Put stores page under its request URL and, after a redirect, its final URL
func (c *PageCache) Put(page *model.RenderedPage) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return err
	}
	if err := c.store.Set(CacheKey(page.RequestURL, page.Rendered), raw, c.ttl); err != nil {
		return err
	}
	if page.FinalURL != "" && page.FinalURL != page.RequestURL {
		return c.store.Set(CacheKey(page.FinalURL, page.Rendered), raw, c.ttl)
	}
	return nil
}

// Clear empties the underlying store
func (c *PageCache) Clear() error {
	return c.store.Clear()
}
