// Package singleflight coalesces concurrent loads of the same cache key.
//
// golang.org/x/sync/singleflight keys calls by string; this Group is
// generic over the cache's comparable key type so no key formatting is
// needed on the miss path.
package singleflight

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanicked wraps a panic raised by the leader's fn. Followers waiting on
// the same key receive it as their error; the leader re-panics.
var ErrPanicked = errors.New("singleflight: fn panicked")

// Group coalesces concurrent function calls for the same key K so that
// the supplied fn is executed at most once. Other concurrent callers
// wait for the shared result.
//
// Concurrency notes:
//   - The first caller for a given key becomes the leader and runs fn.
//   - Followers wait on c.done. Publishing (val, err) happens-before
//     close(c.done), so reads after <-done observe the final values.
//   - Cancelling ctx in a follower unblocks only that follower; it does
//     NOT cancel the leader's fn.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
	dups int
}

// Do runs fn once for the given key. Concurrent calls with the same key
// wait for the shared result. If ctx is cancelled in a follower, that
// follower returns ctx.Err() while the leader continues to run fn.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()

		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(c, key, fn)
	return c.val, c.err
}

// run executes fn for the leader, publishing the result even if fn panics.
func (g *Group[K, V]) run(c *call[V], key K, fn func() (V, error)) {
	normal := false
	defer func() {
		var p any
		if !normal {
			p = recover()
			c.err = fmt.Errorf("%w: %v", ErrPanicked, p)
		}
		close(c.done)

		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()

		if !normal {
			panic(p)
		}
	}()

	c.val, c.err = fn()
	normal = true
}

// Forget drops the in-flight marker for key. The running fn is not
// affected, but later callers start a fresh call instead of joining it.
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// InFlight reports whether a call for key is running and how many
// followers joined it.
func (g *Group[K, V]) InFlight(key K) (running bool, followers int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.m[key]
	if !ok {
		return false, 0
	}
	return true, c.dups
}
