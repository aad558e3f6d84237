package util

import "cmp"

// Search looks for target in an ascending slice without duplicates.
//
// It returns (true, i) when s[i] == target. Otherwise it returns
// (false, i) where i is the position at which target must be inserted to
// keep s sorted (0 <= i <= len(s)).
//
// The midpoint is always the floor of (lo+hi)/2, so inserting and locating
// the same value agree on the index. Use this one helper for both.
func Search[T cmp.Ordered](s []T, target T) (found bool, idx int) {
	lo, hi := 0, len(s)-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1) // floor, overflow-safe
		switch c := cmp.Compare(s[mid], target); {
		case c == 0:
			return true, mid
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	if lo < 0 {
		lo = 0
	}
	return false, lo
}
