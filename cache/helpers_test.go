package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// mustCache builds a cache from opt, fills in a fake clock when none is
// given, and closes the cache when the test ends.
func mustCache[K comparable, V any](t testing.TB, opt Options[K, V]) (*cache[K, V], *clockwork.FakeClock) {
	t.Helper()

	var fake *clockwork.FakeClock
	switch clk := opt.Clock.(type) {
	case nil:
		fake = clockwork.NewFakeClock()
		opt.Clock = fake
	case *clockwork.FakeClock:
		fake = clk
	case *countingClock:
		fake = clk.FakeClock
	}

	c, err := New(opt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c.(*cache[K, V]), fake
}

// countingClock counts timers armed and fired through it.
type countingClock struct {
	*clockwork.FakeClock
	armed atomic.Int64
	fired atomic.Int64
}

func newCountingClock() *countingClock {
	return &countingClock{FakeClock: clockwork.NewFakeClock()}
}

func (c *countingClock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	c.armed.Add(1)
	return c.FakeClock.AfterFunc(d, func() {
		c.fired.Add(1)
		f()
	})
}

// event is one delivered callback.
type event[K comparable] struct {
	key    K
	reason EvictReason
}

// recorder collects OnExpire and OnEvict deliveries on one channel so their
// relative order is observable.
type recorder[K comparable, V any] struct {
	ch chan event[K]
}

func newRecorder[K comparable, V any]() *recorder[K, V] {
	return &recorder[K, V]{ch: make(chan event[K], 1024)}
}

func (r *recorder[K, V]) Expired(k K, _ V) { r.ch <- event[K]{key: k, reason: EvictExpired} }

func (r *recorder[K, V]) evicted(k K, _ V, reason EvictReason) {
	r.ch <- event[K]{key: k, reason: reason}
}

// wire installs the recorder as both callbacks.
func (r *recorder[K, V]) wire(opt *Options[K, V]) {
	opt.OnExpire = r
	opt.OnEvict = r.evicted
}

// next waits for n deliveries.
func (r *recorder[K, V]) next(t testing.TB, n int) []event[K] {
	t.Helper()
	out := make([]event[K], 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case e := <-r.ch:
			out = append(out, e)
		case <-timeout:
			t.Fatalf("got %d of %d callbacks: %v", len(out), n, out)
		}
	}
	return out
}

func keysOf[K comparable](evs []event[K]) []K {
	out := make([]K, len(evs))
	for i, e := range evs {
		out[i] = e.key
	}
	return out
}

// recMetrics records every Metrics call.
type recMetrics struct {
	mu     sync.Mutex
	hits   int
	misses int
	evicts map[EvictReason]int
	size   int
}

func (m *recMetrics) Hit()  { m.mu.Lock(); m.hits++; m.mu.Unlock() }
func (m *recMetrics) Miss() { m.mu.Lock(); m.misses++; m.mu.Unlock() }
func (m *recMetrics) Evict(r EvictReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.evicts == nil {
		m.evicts = make(map[EvictReason]int)
	}
	m.evicts[r]++
}
func (m *recMetrics) Size(n int) { m.mu.Lock(); m.size = n; m.mu.Unlock() }

// checkInvariants verifies, under the cache lock, that the store, the
// expiry index and the scheduler agree with each other.
func checkInvariants[K comparable, V any](t testing.TB, c *cache[K, V]) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	x := c.index
	for i := 1; i < len(x.instants); i++ {
		require.Less(t, x.instants[i-1], x.instants[i], "instants must be strictly ascending")
	}
	require.Len(t, x.series, len(x.instants), "every instant has exactly one bucket")

	indexed := 0
	for _, at := range x.instants {
		keys := x.series[at]
		require.NotEmpty(t, keys, "empty bucket at %d", at)
		for _, k := range keys {
			n, ok := c.store.m[k]
			require.True(t, ok, "bucket %d holds unknown key %v", at, k)
			require.Equal(t, at, n.exp, "key %v registered under the wrong instant", k)
		}
		indexed += len(keys)
	}
	expiring := 0
	for _, n := range c.store.m {
		if n.exp != 0 {
			expiring++
		}
	}
	require.Equal(t, expiring, indexed, "each expiring entry is registered exactly once")

	linked := 0
	var prev *node[K, V]
	for n := c.store.head; n != nil; n = n.next {
		require.Same(t, prev, n.prev)
		prev = n
		linked++
	}
	require.Same(t, prev, c.store.tail)
	require.Equal(t, len(c.store.m), linked)
	require.Equal(t, linked, c.store.len)
	if c.opt.Limit > 0 {
		require.LessOrEqual(t, c.store.len, c.opt.Limit)
	}

	target, armed := c.sched.armed()
	if at, ok := x.earliest(); ok && !c.closed {
		require.True(t, armed, "pending instants need an armed timer")
		require.Equal(t, at, target, "timer must target the earliest instant")
	} else {
		require.False(t, armed, "idle scheduler must not hold a timer")
	}
}
