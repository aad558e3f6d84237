package cache

import "github.com/IvanBrykalov/ttlcache/policy"

// store maps keys to entries and keeps them on an intrusive doubly linked
// list (head = most favored, tail = least favored). The list order is
// driven by the eviction policy through policy.Hooks.
//
// store knows nothing about expiry bookkeeping and has no lock of its own;
// every method runs under the cache mutex.
type store[K comparable, V any] struct {
	m    map[K]*node[K, V]
	head *node[K, V]
	tail *node[K, V]
	len  int

	pol policy.Instance[K, V]
}

func newStore[K comparable, V any](sizeHint int, pol policy.Policy[K, V]) *store[K, V] {
	s := &store[K, V]{m: make(map[K]*node[K, V], sizeHint)}
	s.pol = pol.New(storeHooks[K, V]{s: s})
	return s
}

// upsert inserts or replaces the entry for k. A replaced entry keeps its
// node and is promoted via OnUpdate. For a new entry the policy may propose
// a node to evict; it is returned to the caller, which owns the removal.
func (s *store[K, V]) upsert(k K, v V, exp int64, ttl TTL) (n, evict *node[K, V], existed bool) {
	if n, ok := s.m[k]; ok {
		n.val = v
		n.exp = exp
		n.ttl = ttl
		s.pol.OnUpdate(n)
		return n, nil, true
	}

	n = &node[K, V]{key: k, val: v, exp: exp, ttl: ttl}
	s.m[k] = n
	if ev := s.pol.OnAdd(n); ev != nil {
		evict = ev.(*node[K, V])
	}
	return n, evict, false
}

// lookup returns the entry for k or nil. touch promotes it via OnGet.
func (s *store[K, V]) lookup(k K, touch bool) *node[K, V] {
	n, ok := s.m[k]
	if !ok {
		return nil
	}
	if touch {
		s.pol.OnGet(n)
	}
	return n
}

// remove deletes k and returns the removed entry, or nil if absent.
func (s *store[K, V]) remove(k K) *node[K, V] {
	n, ok := s.m[k]
	if !ok {
		return nil
	}
	s.pol.OnRemove(n)
	s.unlink(n)
	delete(s.m, k)
	return n
}

// reset drops every entry. The policy instance is rebuilt so that any
// policy-internal state goes with the entries.
func (s *store[K, V]) reset(pol policy.Policy[K, V]) {
	clear(s.m)
	s.head, s.tail, s.len = nil, nil, 0
	s.pol = pol.New(storeHooks[K, V]{s: s})
}

// back returns the least favored entry in O(1).
func (s *store[K, V]) back() *node[K, V] { return s.tail }

// -------------------- list internals --------------------

// pushFront inserts n at the head in O(1).
func (s *store[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
}

// moveToFront promotes n to the head in O(1).
func (s *store[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// unlink removes n from the list in O(1). Calling it on a node that is
// not linked (already unlinked by a policy hook) is a no-op.
func (s *store[K, V]) unlink(n *node[K, V]) {
	if n.prev == nil && n.next == nil && s.head != n {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
	s.len--
}

// -------------------- policy hooks --------------------

// storeHooks adapts the store's list operations to policy.Hooks.
type storeHooks[K comparable, V any] struct{ s *store[K, V] }

func (h storeHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.s.moveToFront(x.(*node[K, V])) }
func (h storeHooks[K, V]) PushFront(x policy.Node[K, V])   { h.s.pushFront(x.(*node[K, V])) }
func (h storeHooks[K, V]) Remove(x policy.Node[K, V]) {
	// Map bookkeeping is performed by the store itself.
	h.s.unlink(x.(*node[K, V]))
}
func (h storeHooks[K, V]) Back() policy.Node[K, V] {
	if h.s.tail == nil {
		return nil
	}
	return h.s.tail
}
func (h storeHooks[K, V]) Len() int { return h.s.len }
