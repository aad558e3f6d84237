package cache

import "context"

// Cache is an in-memory key/value cache with TTL expiration and a hard
// entry limit. All methods are safe for concurrent use by multiple goroutines.
//
// Expired entries are retired by a single scheduled wake-up targeting the
// earliest deadline; entries sharing a deadline are retired together.
type Cache[K comparable, V any] interface {
	// Set inserts or updates k→v using the cache's default TTL (if any).
	// The entry becomes most favored for the active eviction policy.
	// It is a no-op when the cache was built with Limit 0.
	Set(k K, v V)

	// SetWithTTL inserts or updates k→v with an entry-level TTL.
	// A zero ttl.Amount falls back to the default amount and an empty
	// ttl.Unit to the default unit. An unknown unit returns ErrInvalidUnit
	// and leaves the cache untouched.
	SetWithTTL(k K, v V, ttl TTL) error

	// Add inserts k→v only if k is not present, using the default TTL.
	// Returns false if the key already exists (no update is performed).
	Add(k K, v V) bool

	// Get returns the value for k and a presence flag.
	// On hit, the entry is promoted according to the policy.
	// An entry whose deadline has passed is never returned.
	Get(k K) (V, bool)

	// GetAndExtend is Get that also restarts the entry's TTL using the
	// duration it was stored with. Entries without expiry are left as is.
	GetAndExtend(k K) (V, bool)

	// GetAndExtendWithTTL is Get that moves the entry's deadline to now+ttl.
	// Zero fields of ttl fall back to the entry's original TTL.
	GetAndExtendWithTTL(k K, ttl TTL) (V, bool, error)

	// Remove deletes k if present and returns true on success.
	// Removal never triggers OnExpire or OnEvict.
	Remove(k K) bool

	// Reset drops every entry and cancels the pending expiry wake-up.
	Reset()

	// Len returns the number of resident entries.
	Len() int

	// Stats returns a snapshot of the cache counters.
	Stats() Stats

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced (singleflight).
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Close cancels the scheduler, rejects further writes and waits until
	// queued expiry/eviction callbacks have been delivered. It must not be
	// called from inside OnExpire or OnEvict.
	Close() error
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64 // capacity and policy evictions
	Expirations uint64 // entries retired by the scheduler
	Entries     int
}
