package cache

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// scheduler owns the single pending expiry timer.
//
// It is Idle (timer == nil, index empty) or Armed (one timer targeting
// index.earliest()). Every method runs under the cache mutex; the timer
// callback re-enters through fire, which must take that mutex first.
type scheduler[K comparable] struct {
	clock Clock
	index *expiryIndex[K]
	// start anchors instants: an instant is the monotonic offset from start,
	// so wall clock steps do not move deadlines.
	start time.Time

	// retire drops the entries of one expired bucket from the store.
	retire func(at int64, keys []K)
	// fire is the timer entry point; it locks the cache and calls onFire.
	fire func(gen uint64)

	timer  clockwork.Timer
	gen    uint64 // identifies the live timer; bumped on every (dis)arm
	target int64  // instant the live timer is armed for
}

func (s *scheduler[K]) now() int64 { return int64(s.clock.Now().Sub(s.start)) }

// wall converts an instant back to a point in time, for logs.
func (s *scheduler[K]) wall(at int64) time.Time { return s.start.Add(time.Duration(at)) }

// rearm cancels the pending timer and arms a new one for the earliest
// instant. Instants already due are retired synchronously, oldest first,
// before any wait is armed.
func (s *scheduler[K]) rearm() {
	s.disarm()
	for {
		at, ok := s.index.earliest()
		if !ok {
			return // idle
		}
		delta := time.Duration(at - s.now())
		if delta <= 0 {
			s.expireEarliest()
			continue
		}

		s.gen++
		gen := s.gen
		s.target = at
		s.timer = s.clock.AfterFunc(delta, func() { s.fire(gen) })
		return
	}
}

// onFire handles a timer firing. A firing that lost the race with a
// cancellation carries a stale generation and is ignored.
func (s *scheduler[K]) onFire(gen uint64) {
	if s.timer == nil || gen != s.gen {
		return
	}
	s.timer = nil
	if at, ok := s.index.earliest(); ok && at == s.target {
		s.expireEarliest()
	}
	s.rearm()
}

// catchUp retires overdue instants if the timer has not got to them yet.
func (s *scheduler[K]) catchUp() {
	if at, ok := s.index.earliest(); ok && at <= s.now() {
		s.rearm()
	}
}

func (s *scheduler[K]) expireEarliest() {
	at, keys := s.index.popEarliest()
	s.retire(at, keys)
}

// disarm stops the pending timer, if any. Stop may report false when the
// timer already fired; the bumped generation turns that firing into a no-op.
func (s *scheduler[K]) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.target = 0
}

// armed reports whether a timer is pending and the instant it targets.
func (s *scheduler[K]) armed() (int64, bool) {
	return s.target, s.timer != nil
}

func (s *scheduler[K]) reset() {
	s.disarm()
	s.index.reset()
}
