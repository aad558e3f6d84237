// Package policy defines how an eviction discipline plugs into the cache's
// entry list. A policy only orders entries; the cache decides when the
// limit is exceeded and removes the least favored entry (the list tail).
package policy

// Node is the minimal contract a cache entry must satisfy for a policy.
// It provides read-only access to the key and a pointer to the value.
type Node[K comparable, V any] interface {
	Key() K
	Value() *V
}

// Hooks expose O(1) list operations that a policy uses to order the
// cache's intrusive entry list (head = most favored, tail = least favored).
//
// Concurrency: all hook calls happen under the cache lock.
// Hooks manage only the list; the cache owns the key->node map.
type Hooks[K comparable, V any] interface {
	// MoveToFront promotes the node to the head.
	MoveToFront(Node[K, V])
	// PushFront inserts the node at the head (used on admission).
	PushFront(Node[K, V])
	// Remove detaches the node from the list.
	Remove(Node[K, V])
	// Back returns the least favored node (or nil if empty).
	Back() Node[K, V]
	// Len returns the number of resident nodes.
	Len() int
}

// Instance is a policy bound to one cache's hooks.
// All methods are invoked under the cache lock.
//
// Semantics:
//   - OnAdd places a new node. It may return a node to evict right away;
//     the cache removes it (calling OnRemove) and reports EvictPolicy.
//   - OnGet is called for reads, OnUpdate for overwrites of a live key.
//   - OnRemove is a notification to drop policy-internal state.
//     The cache performs the actual deletion.
type Instance[K comparable, V any] interface {
	OnAdd(Node[K, V]) (evict Node[K, V])
	OnGet(Node[K, V])
	OnUpdate(Node[K, V])
	OnRemove(Node[K, V])
}

// Policy is a factory that binds a fresh Instance to a cache's hooks.
// The cache calls New again on Reset.
type Policy[K comparable, V any] interface {
	New(Hooks[K, V]) Instance[K, V]
}
