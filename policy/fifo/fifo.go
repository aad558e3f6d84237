// Package fifo implements the first-in-first-out eviction policy.
//
// Reads never reposition an entry, so the tail is always the entry written
// longest ago. An overwrite counts as a new write and moves the entry to
// the head.
package fifo

import "github.com/IvanBrykalov/ttlcache/policy"

type fifo[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type fifoPolicy[K comparable, V any] struct{}

// New returns a Policy factory that constructs FIFO instances.
func New[K comparable, V any]() policy.Policy[K, V] { return fifoPolicy[K, V]{} }

// New implements policy.Policy.
func (fifoPolicy[K, V]) New(h policy.Hooks[K, V]) policy.Instance[K, V] {
	return &fifo[K, V]{h: h}
}

func (p *fifo[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	return nil
}

// OnGet leaves the order untouched.
func (p *fifo[K, V]) OnGet(_ policy.Node[K, V]) {}

// OnUpdate treats the overwrite as a fresh insertion.
func (p *fifo[K, V]) OnUpdate(n policy.Node[K, V]) { p.h.MoveToFront(n) }

func (p *fifo[K, V]) OnRemove(_ policy.Node[K, V]) {}
