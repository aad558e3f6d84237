package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// notice is one pending OnExpire/OnEvict delivery.
type notice[K comparable, V any] struct {
	key    K
	val    V
	reason EvictReason
}

// dispatcher delivers notices in the order they were queued, outside the
// cache lock, on at most one goroutine at a time. The goroutine is started
// on demand and exits when the queue is empty, so an idle cache owns none.
type dispatcher[K comparable, V any] struct {
	onExpire ExpirationSink[K, V]
	onEvict  func(k K, v V, reason EvictReason)
	log      *slog.Logger

	mu      sync.Mutex
	queue   []notice[K, V]
	running bool
	wg      sync.WaitGroup
}

// wants reports whether a notice with this reason has a receiver.
func (d *dispatcher[K, V]) wants(r EvictReason) bool {
	if r == EvictExpired {
		return d.onExpire != nil
	}
	return d.onEvict != nil
}

// push queues n; safe to call with the cache lock held.
func (d *dispatcher[K, V]) push(n notice[K, V]) {
	if !d.wants(n.reason) {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, n)
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.wg.Add(1)
	d.mu.Unlock()

	go d.drain()
}

func (d *dispatcher[K, V]) drain() {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		if len(batch) == 0 {
			d.running = false
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()

		for _, n := range batch {
			d.deliver(n)
		}
	}
}

// deliver runs one callback; a panic is logged and swallowed so the rest
// of the queue still goes out.
func (d *dispatcher[K, V]) deliver(n notice[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			d.log.LogAttrs(context.Background(), slog.LevelWarn, "cache: callback panicked",
				slog.String("reason", n.reason.String()),
				slog.String("key", fmt.Sprint(n.key)),
				slog.Any("panic", r),
			)
		}
	}()

	if n.reason == EvictExpired {
		d.onExpire.Expired(n.key, n.val)
		return
	}
	d.onEvict(n.key, n.val, n.reason)
}

// wait blocks until every queued notice has been delivered.
func (d *dispatcher[K, V]) wait() { d.wg.Wait() }
