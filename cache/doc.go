// Package cache provides a generic in-memory key/value cache whose entries
// expire on their own, driven by a single timer, with an upper bound on the
// number of entries and a pluggable eviction policy (LRU by default).
//
// Design
//
//   - Concurrency: one mutex guards all state. Every public call and every
//     timer firing observes and leaves a consistent cache.
//
//   - Storage: a map[K]*node for lookups and an intrusive doubly linked list
//     ordered by the eviction policy (head = most favored). All operations
//     on the list are O(1).
//
//   - Expiry index: deadlines are kept as a sorted slice of distinct instants
//     (monotonic nanoseconds since New) plus a map from instant to the keys
//     that share it. Entries
//     set in the same instant with the same TTL land in one bucket and are
//     retired together.
//
//   - Scheduler: at most one timer is pending, armed for the earliest
//     instant. When it fires, that whole bucket is retired and the timer is
//     re-armed for the next instant. Instants that are already due when the
//     scheduler re-arms (or when a public call starts) are retired right
//     away, so Get never returns an expired value.
//
//   - Limit: Options.Limit bounds the entry count. Overflow evicts the least
//     favored entry according to Options.Policy. A Limit of 0 disables
//     storage entirely.
//
//   - Callbacks: OnExpire receives entries the scheduler retires, OnEvict
//     receives entries dropped by the limit or the policy. Both run on a
//     separate goroutine, outside the lock, in the order the events
//     happened. A panicking callback is logged and does not stop later ones.
//
// Basic usage
//
//	c, err := cache.New(cache.DefaultOptions[string, []byte]())
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//	c.Remove("a")
//
// With TTL
//
//	opt := cache.DefaultOptions[string, string]()
//	opt.TTL, opt.TTLUnits = 30, cache.Second
//	opt.OnExpire = cache.ExpireFunc[string, string](func(k, v string) {
//	    log.Printf("expired %s", k)
//	})
//	c, _ := cache.New(opt)
//	c.Set("session", "token")                                // 30s
//	_ = c.SetWithTTL("tmp", "v", cache.Milliseconds(200))    // 200ms
//	c.GetAndExtend("session")                                // another 30s
//
// With GetOrLoad (singleflight)
//
//	opt := cache.DefaultOptions[string, string]()
//	opt.Loader = func(ctx context.Context, k string) (string, error) {
//	    return fetch(ctx, k)
//	}
//	c, _ := cache.New(opt)
//	v, err := c.GetOrLoad(ctx, "key")
//
// Exporting metrics
//
//	m := prom.New(nil, "app", "sessions") // implements cache.Metrics
//	opt := cache.DefaultOptions[string, []byte]()
//	opt.Metrics = m
//
// All methods on Cache are safe for concurrent use.
package cache
