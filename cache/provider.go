// Package cache defines the pluggable storage backends of the page cache.
package cache

import (
	"fmt"
	"sync"
	"time"
)

// Provider is the storage backend contract. It stores and retrieves []byte
// values under opaque string keys with a per-entry time to live.
//
// Implementations must be thread-safe!
type Provider interface {
	// Get returns the value for the given key, if it exists.
	// It also returns a boolean indicating whether retrieval was successful.
	// If the entry has expired, the boolean should be false.
	// (In this case, the provider should also drop the entry.)
	Get(key string) ([]byte, bool, error)
	// Set stores the given value under the given key for the given
	// time to live. A non-positive ttl means the provider default.
	Set(key string, value []byte, ttl time.Duration) error
	// DefaultTTL returns the time to live used when Set gets none.
	DefaultTTL() time.Duration
}

// DefaultAlias is the alias used when a deployment names no backend.
const DefaultAlias = "default"

var (
	registryMutex sync.RWMutex
	registry      = make(map[string]Provider)
)

// Register makes a provider available under the given alias,
// replacing any previous registration.
func Register(alias string, p Provider) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry[alias] = p
}

// Lookup returns the provider registered under the given alias.
func Lookup(alias string) (Provider, error) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	if p, ok := registry[alias]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no cache backend registered under alias %q", alias)
}
