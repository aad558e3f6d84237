package cache

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Unit is the unit a TTL amount is expressed in.
type Unit string

// Recognized units.
const (
	Millisecond Unit = "ms"
	Second      Unit = "s"
	Minute      Unit = "m"
	Hour        Unit = "h"
)

// ParseUnit parses "ms", "s", "m" or "h" (case-insensitive).
// An empty string yields Millisecond.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if u == "" {
		return Millisecond, nil
	}
	if _, err := u.multiplier(); err != nil {
		return "", err
	}
	return u, nil
}

func (u Unit) multiplier() (time.Duration, error) {
	switch u {
	case Millisecond:
		return time.Millisecond, nil
	case Second:
		return time.Second, nil
	case Minute:
		return time.Minute, nil
	case Hour:
		return time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, string(u))
	}
}

// TTL is a lifetime expressed as an amount of Units, e.g. TTL{30, Second}.
// It is kept on each entry so a later extension can reuse it.
type TTL struct {
	Amount float64
	Unit   Unit
}

// Milliseconds returns TTL{n, Millisecond}.
func Milliseconds(n float64) TTL { return TTL{Amount: n, Unit: Millisecond} }

// Seconds returns TTL{n, Second}.
func Seconds(n float64) TTL { return TTL{Amount: n, Unit: Second} }

// Minutes returns TTL{n, Minute}.
func Minutes(n float64) TTL { return TTL{Amount: n, Unit: Minute} }

// Hours returns TTL{n, Hour}.
func Hours(n float64) TTL { return TTL{Amount: n, Unit: Hour} }

// Duration converts the TTL to a time.Duration.
// A non-positive amount yields 0 (no expiry). Amounts too large for a
// Duration, +Inf included, saturate at math.MaxInt64. NaN is rejected
// with ErrInvalidTTL.
func (t TTL) Duration() (time.Duration, error) {
	u := t.Unit
	if u == "" {
		u = Millisecond
	}
	m, err := u.multiplier()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(t.Amount) {
		return 0, fmt.Errorf("%w: amount is NaN", ErrInvalidTTL)
	}
	if t.Amount <= 0 {
		return 0, nil
	}
	ns := t.Amount * float64(m)
	if ns >= math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return time.Duration(ns), nil
}

// or fills zero fields of t from def.
func (t TTL) or(def TTL) TTL {
	if t.Amount <= 0 {
		t.Amount = def.Amount
	}
	if t.Unit == "" {
		t.Unit = def.Unit
	}
	return t
}
