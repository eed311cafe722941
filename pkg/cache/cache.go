// Package cache provides a TTL cache for venue metadata that changes
// rarely, like resolution status of expired events.
package cache

import "time"

// Cache is a TTL key/value store.
type Cache interface {
	// Get retrieves a value, reporting whether it was present.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL. Returns false if the write was dropped.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value.
	Delete(key string)

	// Clear removes all values.
	Clear()

	// Close releases resources.
	Close()
}
