package fifo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/ttlcache/policy"
)

type testNode struct {
	k string
	v int
}

func (n *testNode) Key() string { return n.k }
func (n *testNode) Value() *int { return &n.v }

// listHooks is a tiny slice-backed list: index 0 is the head.
type listHooks struct {
	list []policy.Node[string, int]
}

func (h *listHooks) PushFront(n policy.Node[string, int]) {
	h.list = append([]policy.Node[string, int]{n}, h.list...)
}

func (h *listHooks) MoveToFront(n policy.Node[string, int]) {
	h.Remove(n)
	h.PushFront(n)
}

func (h *listHooks) Remove(n policy.Node[string, int]) {
	for i, x := range h.list {
		if x == n {
			h.list = append(h.list[:i], h.list[i+1:]...)
			return
		}
	}
}

func (h *listHooks) Back() policy.Node[string, int] {
	if len(h.list) == 0 {
		return nil
	}
	return h.list[len(h.list)-1]
}

func (h *listHooks) Len() int { return len(h.list) }

func (h *listHooks) keys() []string {
	out := make([]string, 0, len(h.list))
	for _, n := range h.list {
		out = append(out, n.Key())
	}
	return out
}

func TestFIFO_ReadsDoNotReorder(t *testing.T) {
	t.Parallel()

	h := &listHooks{}
	p := New[string, int]().New(h)

	a, b, c := &testNode{k: "a"}, &testNode{k: "b"}, &testNode{k: "c"}
	for _, n := range []*testNode{a, b, c} {
		require.Nil(t, p.OnAdd(n))
	}
	assert.Equal(t, []string{"c", "b", "a"}, h.keys())

	p.OnGet(a)
	p.OnGet(a)
	assert.Equal(t, []string{"c", "b", "a"}, h.keys())
	assert.Equal(t, "a", h.Back().Key(), "oldest write stays least favored")
}

func TestFIFO_UpdateCountsAsNewWrite(t *testing.T) {
	t.Parallel()

	h := &listHooks{}
	p := New[string, int]().New(h)

	a, b := &testNode{k: "a"}, &testNode{k: "b"}
	p.OnAdd(a)
	p.OnAdd(b)

	p.OnUpdate(a)
	assert.Equal(t, []string{"a", "b"}, h.keys())
	assert.Equal(t, "b", h.Back().Key())
}

func TestFIFO_OnRemove_NoOp(t *testing.T) {
	t.Parallel()

	h := &listHooks{}
	p := New[string, int]().New(h)

	a := &testNode{k: "a"}
	p.OnAdd(a)
	p.OnRemove(a)
	assert.Equal(t, 1, h.Len(), "the cache unlinks, not the policy")
}
