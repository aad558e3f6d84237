package lru

import (
	"testing"

	"github.com/IvanBrykalov/ttlcache/policy"
)

// --- test doubles ---

type testNode[K comparable, V any] struct {
	k K
	v V
}

func (n *testNode[K, V]) Key() K    { return n.k }
func (n *testNode[K, V]) Value() *V { return &n.v }

// recHooks records every list operation in call order.
type recHooks[K comparable, V any] struct {
	ops []string
	at  []policy.Node[K, V]
}

func (h *recHooks[K, V]) rec(op string, n policy.Node[K, V]) {
	h.ops = append(h.ops, op)
	h.at = append(h.at, n)
}

func (h *recHooks[K, V]) MoveToFront(n policy.Node[K, V]) { h.rec("move", n) }
func (h *recHooks[K, V]) PushFront(n policy.Node[K, V])   { h.rec("push", n) }
func (h *recHooks[K, V]) Remove(n policy.Node[K, V])      { h.rec("remove", n) }
func (h *recHooks[K, V]) Back() policy.Node[K, V]         { return nil }
func (h *recHooks[K, V]) Len() int                        { return 0 }

func (h *recHooks[K, V]) only(t *testing.T, op string, n policy.Node[K, V]) {
	t.Helper()
	if len(h.ops) != 1 || h.ops[0] != op || h.at[0] != n {
		t.Fatalf("want exactly one %q on the node, got %v", op, h.ops)
	}
}

// --- tests ---

// OnAdd pushes the node to the head and never proposes an eviction.
func TestLRU_OnAdd_PushFrontAndNoEvict(t *testing.T) {
	t.Parallel()

	h := &recHooks[string, int]{}
	p := New[string, int]().New(h)

	n := &testNode[string, int]{k: "k1", v: 1}
	if ev := p.OnAdd(n); ev != nil {
		t.Fatalf("OnAdd must not return evict candidate for LRU, got %v", ev)
	}
	h.only(t, "push", n)
}

// A read counts as use.
func TestLRU_OnGet_MoveToFront(t *testing.T) {
	t.Parallel()

	h := &recHooks[string, int]{}
	p := New[string, int]().New(h)

	n := &testNode[string, int]{k: "k2", v: 2}
	p.OnGet(n)
	h.only(t, "move", n)
}

// So does an overwrite.
func TestLRU_OnUpdate_MoveToFront(t *testing.T) {
	t.Parallel()

	h := &recHooks[string, int]{}
	p := New[string, int]().New(h)

	n := &testNode[string, int]{k: "k3", v: 3}
	p.OnUpdate(n)
	h.only(t, "move", n)
}

func TestLRU_OnRemove_NoOp(t *testing.T) {
	t.Parallel()

	h := &recHooks[string, int]{}
	p := New[string, int]().New(h)

	p.OnRemove(&testNode[string, int]{k: "k4", v: 4})
	if len(h.ops) != 0 {
		t.Fatalf("OnRemove for LRU must be no-op, got %v", h.ops)
	}
}

// Each New call yields an independent instance bound to its own hooks.
func TestLRU_NewBindsHooks(t *testing.T) {
	t.Parallel()

	pol := New[string, int]()
	h1, h2 := &recHooks[string, int]{}, &recHooks[string, int]{}
	p1, p2 := pol.New(h1), pol.New(h2)

	p1.OnAdd(&testNode[string, int]{k: "a"})
	p2.OnGet(&testNode[string, int]{k: "b"})

	if len(h1.ops) != 1 || h1.ops[0] != "push" {
		t.Fatalf("h1: %v", h1.ops)
	}
	if len(h2.ops) != 1 || h2.ops[0] != "move" {
		t.Fatalf("h2: %v", h2.ops)
	}
}
