// Package cache keeps fetched pages around so repeated runs over the same
// diocese do not hit parish sites again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte store with per-entry TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives the storage key for a page. Browser-rendered and plain
// HTTP copies of the same URL are kept apart.
func CacheKey(url string, rendered bool) string {
	mode := "http"
	if rendered {
		mode = "rendered"
	}
	hash := sha256.Sum256([]byte(mode + "\x00" + url))
	return "parishscope:v1:" + hex.EncodeToString(hash[:])
}
