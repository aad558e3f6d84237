package cache

import (
	"slices"

	"github.com/IvanBrykalov/ttlcache/internal/util"
)

// expiryIndex groups keys by their exact deadline.
//
// instants is strictly ascending and holds an instant iff series has a
// non-empty bucket for it. Each key lives in at most one bucket, the one
// matching its entry's exp. Buckets keep registration order.
type expiryIndex[K comparable] struct {
	instants []int64
	series   map[int64][]K
}

func newExpiryIndex[K comparable]() *expiryIndex[K] {
	return &expiryIndex[K]{series: make(map[int64][]K)}
}

// register adds k to the bucket for at, creating the instant if needed.
// It reports whether at became the new earliest instant.
func (x *expiryIndex[K]) register(k K, at int64) (becameEarliest bool) {
	found, i := util.Search(x.instants, at)
	if !found {
		x.instants = slices.Insert(x.instants, i, at)
	}
	x.series[at] = append(x.series[at], k)
	return !found && i == 0
}

// unregister removes k from the bucket for at. When the bucket empties the
// instant leaves the index; the result reports whether it was the earliest.
func (x *expiryIndex[K]) unregister(k K, at int64) (wasEarliest bool) {
	bucket, ok := x.series[at]
	if !ok {
		return false
	}
	if j := slices.Index(bucket, k); j >= 0 {
		bucket = slices.Delete(bucket, j, j+1)
	}
	if len(bucket) > 0 {
		x.series[at] = bucket
		return false
	}

	delete(x.series, at)
	found, i := util.Search(x.instants, at)
	if !found {
		return false
	}
	x.instants = slices.Delete(x.instants, i, i+1)
	return i == 0
}

// earliest returns the head of the index.
func (x *expiryIndex[K]) earliest() (int64, bool) {
	if len(x.instants) == 0 {
		return 0, false
	}
	return x.instants[0], true
}

// popEarliest removes the head instant and its whole bucket.
func (x *expiryIndex[K]) popEarliest() (int64, []K) {
	at, ok := x.earliest()
	if !ok {
		return 0, nil
	}
	keys := x.series[at]
	delete(x.series, at)
	x.instants = slices.Delete(x.instants, 0, 1)
	return at, keys
}

func (x *expiryIndex[K]) len() int { return len(x.instants) }

func (x *expiryIndex[K]) reset() {
	x.instants = x.instants[:0]
	clear(x.series)
}
