package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/IvanBrykalov/ttlcache/policy"
	"github.com/jonboulle/clockwork"
)

// DefaultLimit is the entry limit used by DefaultOptions.
const DefaultLimit = 1000

// EvictReason explains why an entry was removed without a caller asking.
type EvictReason int

const (
	// EvictPolicy: proposed by the active eviction policy on admission.
	EvictPolicy EvictReason = iota
	// EvictExpired: retired by the expiry scheduler.
	EvictExpired
	// EvictCapacity: removed to satisfy the entry limit.
	EvictCapacity
)

// String returns a stable lowercase name, suitable as a metric label.
func (r EvictReason) String() string {
	switch r {
	case EvictExpired:
		return "expired"
	case EvictCapacity:
		return "capacity"
	default:
		return "policy"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
// Hooks are invoked under the cache lock; keep them cheap.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Clock is the time source and timer primitive used by the scheduler.
// clockwork.NewRealClock() and clockwork.NewFakeClock() both satisfy it.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) clockwork.Timer
}

// ExpirationSink receives entries retired by the expiry scheduler.
// Expired is called once per key, outside the cache lock, in retirement order.
type ExpirationSink[K comparable, V any] interface {
	Expired(k K, v V)
}

// ExpireFunc adapts a plain function to ExpirationSink.
type ExpireFunc[K comparable, V any] func(k K, v V)

// Expired calls f(k, v).
func (f ExpireFunc[K, V]) Expired(k K, v V) { f(k, v) }

// Options configures the cache behavior.
//
// Limit is taken literally: 0 disables storage entirely. Start from
// DefaultOptions to get the 1000-entry default. Other zero values are safe:
//   - empty TTLUnits => Millisecond
//   - nil Policy     => LRU
//   - nil Metrics    => NoopMetrics
//   - nil Clock      => real clock
//   - nil Logger     => discard
type Options[K comparable, V any] struct {
	// Limit is the maximum number of resident entries.
	// 0 disables caching (Set is a no-op); negative is rejected by New.
	Limit int

	// TTL is the default lifetime in TTLUnits applied when an entry
	// has no TTL of its own. Non-positive means entries never expire.
	TTL float64
	// TTLUnits is the unit of TTL.
	TTLUnits Unit

	// Policy chooses which entry is least favored when Limit is exceeded.
	// nil => LRU (reads promote); fifo.New gives insertion order.
	Policy policy.Policy[K, V]

	// OnExpire is notified for every entry the scheduler retires.
	// It is not called for Remove, Reset or evictions.
	OnExpire ExpirationSink[K, V]

	// OnEvict is called for entries removed by the limit or the policy.
	OnEvict func(k K, v V, reason EvictReason)

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	Metrics Metrics

	// Clock allows overriding the time source and timers (tests).
	Clock Clock

	// Logger reports callback faults. Nil => discard.
	Logger *slog.Logger
}

// DefaultOptions returns Options with the default limit and millisecond units.
func DefaultOptions[K comparable, V any]() Options[K, V] {
	return Options[K, V]{
		Limit:    DefaultLimit,
		TTLUnits: Millisecond,
	}
}
