// Package cache implements the rendered-sub-query -> count cache of §4.6:
// an in-memory variant for one-shot runs, and a persistent go.etcd.io/bbolt
// -backed variant for reuse across invocations, mirroring the
// interface-over-multiple-backends shape of the teacher's database.Database
// abstraction.
package cache

// Cache maps a rendered sub-query string to its known (non-negative)
// result count. The core operates on one query at a time, so no
// implementation here needs to support concurrent writers.
type Cache interface {
	// Get returns the cached count for key, if present.
	Get(key string) (count int, ok bool)
	// Put records count for key, overwriting any existing entry.
	Put(key string, count int) error
	// Contains reports whether key has a cached entry.
	Contains(key string) bool
	// Update bulk-imports every entry of other into this cache.
	Update(other Cache) error
	// Reset discards every cached entry.
	Reset() error
	// Sync flushes any buffered writes to durable storage. A no-op for
	// backends with no write buffering.
	Sync() error
	// Close releases any resources (open files, handles) held by the
	// cache. A no-op for backends that hold none.
	Close() error
	// Len reports the number of cached entries.
	Len() int
	// Keys returns every cached key, in no particular order.
	Keys() []string
}
