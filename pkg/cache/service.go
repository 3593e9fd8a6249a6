package cache

import "time"

// CacheService is the in-process cache behind the catalog and the session
// registry.
type CacheService interface {
	// Get returns the value and true when the key is present and not expired.
	Get(key string) (interface{}, bool)

	// Set stores value for duration. A zero duration uses the cache default.
	Set(key string, value interface{}, duration time.Duration)

	Delete(key string)

	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(prefix string)

	// Count is the number of items, expired ones included until cleanup.
	Count() int

	Flush()
}
