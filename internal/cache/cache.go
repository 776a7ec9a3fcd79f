// Package cache provides the page and embedding caches.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const keyPrefix = "facultyscope:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from an arbitrary identifier such as a URL
func CacheKey(id string) string {
	hash := sha256.Sum256([]byte(id))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// RequestKey generates a cache key for an HTTP request. POST bodies are part
// of the identity because directory queries share one endpoint.
func RequestKey(method, rawURL string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(rawURL))
	h.Write([]byte{0})
	h.Write(body)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
