package cache

import "errors"

var (
	// ErrInvalidLimit is returned by New for a negative Options.Limit.
	ErrInvalidLimit = errors.New("cache: limit must be >= 0")

	// ErrInvalidUnit reports a TTL unit other than ms, s, m or h.
	ErrInvalidUnit = errors.New("cache: unknown ttl unit")

	// ErrInvalidTTL reports a TTL amount that is not a number.
	ErrInvalidTTL = errors.New("cache: invalid ttl amount")

	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")

	// ErrClosed is returned by GetOrLoad and SetWithTTL after Close.
	ErrClosed = errors.New("cache: closed")
)
