package cache

import (
	"context"
	"time"
)

// Store defines the contract for a time-bounded key/value cache.
// Get reports found=false for missing and expired entries alike.
type Store[V any] interface {
	Get(ctx context.Context, key string) (value V, found bool, err error)
	Set(ctx context.Context, key string, value V) error
}

// Entry represents a cached item with its insertion time
type Entry[V any] struct {
	Key        string    `json:"key"`
	Value      V         `json:"value"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Fresh reports whether the entry is still visible under ttl at now
func (e Entry[V]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.InsertedAt) < ttl
}

// DeriveKeyFromURL creates a cache key from a source URL
func DeriveKeyFromURL(url string) string {
	return url
}

// CatalogKey is the fixed key under which a whole parsed catalog is cached
func CatalogKey(profile string) string {
	return "catalog:" + profile
}
