package cache

// node is an intrusive doubly linked list element owned by the entry store.
// It stores the key/value alongside list links and the expiry bookkeeping
// needed to unregister the entry from the expiry index.
type node[K comparable, V any] struct {
	key K
	val V

	// Intrusive list links: head is most favored, tail is least favored.
	prev *node[K, V]
	next *node[K, V]

	// Expiration instant: nanoseconds since the cache was created, on the
	// monotonic clock. Zero means "no TTL".
	exp int64

	// ttl the deadline was computed from; reused by GetAndExtend.
	ttl TTL
}

// Key returns the node key (part of policy.Node interface).
func (n *node[K, V]) Key() K { return n.key }

// Value returns a pointer to the stored value (part of policy.Node interface).
// NOTE: callers must only read/write through this pointer while holding the
// cache lock; otherwise data races may occur.
func (n *node[K, V]) Value() *V { return &n.val }
