package cache

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/IvanBrykalov/ttlcache/internal/singleflight"
	"github.com/IvanBrykalov/ttlcache/internal/util"
	"github.com/IvanBrykalov/ttlcache/policy/lru"
	"github.com/jonboulle/clockwork"
)

// maxSizeHint caps the map pre-allocation for very large limits.
const maxSizeHint = 1 << 16

// cache is an in-memory KV store with an expiry scheduler and an entry limit.
// One mutex guards the store, the expiry index and the scheduler, so every
// public call and every timer firing is a single atomic step.
type cache[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu     sync.Mutex
	store  *store[K, V]
	index  *expiryIndex[K]
	sched  *scheduler[K]
	closed bool

	notes *dispatcher[K, V]
	opt   Options[K, V]
	def   TTL // cache-level default TTL
	log   *slog.Logger

	// ---- counters, read lock-free by Stats ----
	_           util.CacheLinePad
	hits        util.PaddedAtomicUint64
	misses      util.PaddedAtomicUint64
	evictions   util.PaddedAtomicUint64
	expirations util.PaddedAtomicUint64

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a cache with the provided Options.
// Defaults:
//   - empty TTLUnits -> Millisecond
//   - nil Policy     -> LRU
//   - nil Metrics    -> NoopMetrics
//   - nil Clock      -> clockwork.NewRealClock()
//   - nil Logger     -> discard
//
// A negative Limit returns ErrInvalidLimit, an unknown TTLUnits returns
// ErrInvalidUnit and a NaN TTL returns ErrInvalidTTL.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if opt.Limit < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, opt.Limit)
	}
	if opt.TTLUnits == "" {
		opt.TTLUnits = Millisecond
	}
	if _, err := (TTL{Amount: opt.TTL, Unit: opt.TTLUnits}).Duration(); err != nil {
		return nil, err
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K, V]()
	}
	if opt.Clock == nil {
		opt.Clock = clockwork.NewRealClock()
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.DiscardHandler)
	}

	c := &cache[K, V]{
		index: newExpiryIndex[K](),
		opt:   opt,
		def:   TTL{Amount: opt.TTL, Unit: opt.TTLUnits},
		log:   opt.Logger,
	}
	c.store = newStore[K, V](min(opt.Limit, maxSizeHint), opt.Policy)
	c.sched = &scheduler[K]{
		clock:  opt.Clock,
		index:  c.index,
		start:  opt.Clock.Now(),
		retire: c.retireLocked,
		fire:   c.fire,
	}
	c.notes = &dispatcher[K, V]{
		onExpire: opt.OnExpire,
		onEvict:  opt.OnEvict,
		log:      opt.Logger,
	}
	return c, nil
}

// ---- Cache[K,V] implementation ----

// Set inserts or updates k→v using the default TTL.
func (c *cache[K, V]) Set(k K, v V) {
	// The default unit was validated by New; a closed cache ignores writes.
	_, _ = c.set(k, v, TTL{}, false)
}

// SetWithTTL inserts or updates k→v with an entry-level TTL.
func (c *cache[K, V]) SetWithTTL(k K, v V, ttl TTL) error {
	_, err := c.set(k, v, ttl, false)
	return err
}

// Add inserts k→v only if absent, using the default TTL.
func (c *cache[K, V]) Add(k K, v V) bool {
	ok, _ := c.set(k, v, TTL{}, true)
	return ok
}

func (c *cache[K, V]) set(k K, v V, ttl TTL, onlyIfAbsent bool) (bool, error) {
	if c.opt.Limit == 0 {
		return false, nil // caching disabled
	}
	ttl = ttl.or(c.def)
	d, err := ttl.Duration()
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	c.sched.catchUp()

	old := c.store.lookup(k, false)
	if old != nil && onlyIfAbsent {
		return false, nil
	}

	// The previous registration must go before the entry is overwritten.
	rearm := false
	if old != nil && old.exp != 0 {
		rearm = c.index.unregister(k, old.exp)
	}
	exp := c.deadline(d)
	_, evict, _ := c.store.upsert(k, v, exp, ttl)
	if exp != 0 && c.index.register(k, exp) {
		rearm = true
	}
	if rearm {
		c.sched.rearm()
	}

	if evict != nil {
		c.evictLocked(evict, EvictPolicy)
	}
	c.enforceLimitLocked()
	c.opt.Metrics.Size(c.store.len)
	return true, nil
}

// Get returns the value for k and a presence flag.
func (c *cache[K, V]) Get(k K) (V, bool) {
	v, ok, _ := c.get(k, false, TTL{})
	return v, ok
}

// GetAndExtend returns the value for k and restarts its original TTL.
func (c *cache[K, V]) GetAndExtend(k K) (V, bool) {
	v, ok, _ := c.get(k, true, TTL{})
	return v, ok
}

// GetAndExtendWithTTL returns the value for k and moves its deadline to now+ttl.
func (c *cache[K, V]) GetAndExtendWithTTL(k K, ttl TTL) (V, bool, error) {
	return c.get(k, true, ttl)
}

func (c *cache[K, V]) get(k K, extend bool, ttl TTL) (V, bool, error) {
	var zero V
	if extend {
		if _, err := ttl.Duration(); err != nil {
			return zero, false, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return zero, false, nil
	}
	// Anything past its deadline is retired here, so a stale value is
	// never handed out even if the timer has not fired yet.
	c.sched.catchUp()

	n := c.store.lookup(k, true)
	if n == nil {
		c.misses.Add(1)
		c.opt.Metrics.Miss()
		return zero, false, nil
	}
	if extend && n.exp != 0 {
		c.extendLocked(n, ttl.or(n.ttl))
	}

	c.hits.Add(1)
	c.opt.Metrics.Hit()
	return n.val, true, nil
}

// extendLocked moves n to a new deadline computed from ttl.
func (c *cache[K, V]) extendLocked(n *node[K, V], ttl TTL) {
	d, err := ttl.Duration()
	if err != nil || d <= 0 {
		return
	}
	rearm := c.index.unregister(n.key, n.exp)
	n.exp = c.deadline(d)
	n.ttl = ttl
	if c.index.register(n.key, n.exp) {
		rearm = true
	}
	if rearm {
		c.sched.rearm()
	}
}

// Remove deletes k if present and returns true on success.
func (c *cache[K, V]) Remove(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.sched.catchUp()

	if c.deleteLocked(k) == nil {
		return false
	}
	c.opt.Metrics.Size(c.store.len)
	return true
}

// Reset drops all entries and cancels the pending wake-up.
func (c *cache[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sched.reset()
	c.store.reset(c.opt.Policy)
	c.opt.Metrics.Size(0)
}

// Len returns the number of resident entries.
func (c *cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.sched.catchUp()
	}
	return c.store.len
}

// Stats returns a snapshot of the cache counters.
func (c *cache[K, V]) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
		Entries:     c.Len(),
	}
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	var zero V
	if c.opt.Loader == nil {
		return zero, ErrNoLoader
	}
	if c.isClosed() {
		return zero, ErrClosed
	}

	// singleflight: exactly one real load for the key
	return c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err == nil {
			c.Set(k, v)
		}
		return v, err
	})
}

// Close stops the scheduler and waits for pending callbacks. Further
// operations are ignored. Close is safe to call multiple times.
func (c *cache[K, V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.sched.disarm()
	c.mu.Unlock()

	// Wait outside the lock: callbacks may call back into the cache.
	c.notes.wait()
	return nil
}

// -------------------- internals (mu held) --------------------

// fire is the scheduler's timer entry point.
func (c *cache[K, V]) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.sched.onFire(gen)
}

// retireLocked removes one expired bucket from the store. The bucket has
// already left the index as a whole, so keys are not unregistered one by one.
func (c *cache[K, V]) retireLocked(at int64, keys []K) {
	for _, k := range keys {
		n := c.store.remove(k)
		if n == nil {
			continue
		}
		c.expirations.Add(1)
		c.opt.Metrics.Evict(EvictExpired)
		c.notes.push(notice[K, V]{key: k, val: n.val, reason: EvictExpired})
	}
	c.opt.Metrics.Size(c.store.len)
	c.log.LogAttrs(context.Background(), slog.LevelDebug, "cache: expired batch",
		slog.Time("at", c.sched.wall(at)),
		slog.Int("keys", len(keys)),
	)
}

// deleteLocked removes k from the store and the expiry index, re-arming the
// scheduler if the earliest instant went away.
func (c *cache[K, V]) deleteLocked(k K) *node[K, V] {
	n := c.store.remove(k)
	if n == nil {
		return nil
	}
	if n.exp != 0 && c.index.unregister(k, n.exp) {
		c.sched.rearm()
	}
	return n
}

// evictLocked removes n without a caller asking and reports it.
func (c *cache[K, V]) evictLocked(n *node[K, V], reason EvictReason) {
	if c.deleteLocked(n.key) == nil {
		return
	}
	c.evictions.Add(1)
	c.opt.Metrics.Evict(reason)
	c.notes.push(notice[K, V]{key: n.key, val: n.val, reason: reason})
}

// enforceLimitLocked evicts least favored entries until len <= Limit.
func (c *cache[K, V]) enforceLimitLocked() {
	for c.store.len > c.opt.Limit {
		tail := c.store.back()
		if tail == nil {
			break
		}
		c.evictLocked(tail, EvictCapacity)
	}
}

// deadline converts a relative TTL into an instant on the scheduler's
// timeline. A non-positive d returns 0 (no expiration); a sum past the end
// of the timeline saturates at math.MaxInt64.
func (c *cache[K, V]) deadline(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	now := c.sched.now()
	if now > 0 && int64(d) > math.MaxInt64-now {
		return math.MaxInt64
	}
	return max(now+int64(d), 1)
}

func (c *cache[K, V]) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
