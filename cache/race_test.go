package cache

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A mixed workload of concurrent writes, reads, extensions and removals on
// the real clock, so timer firings interleave with callers.
// Should pass under `-race` without detector reports.
func TestRace_Mixed(t *testing.T) {
	var expired atomic.Int64
	opt := Options[string, []byte]{
		Limit: 4_096,
		Clock: clockwork.NewRealClock(),
		OnExpire: ExpireFunc[string, []byte](func(string, []byte) {
			expired.Add(1)
		}),
		OnEvict: func(string, []byte, EvictReason) {},
	}
	c, _ := mustCache(t, opt)

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 20_000
	deadline := time.Now().Add(time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(keyspace))
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4: // ~5% Remove
					c.Remove(k)
				case 5, 6, 7, 8, 9, 10, 11, 12, 13, 14: // ~10% SetWithTTL
					_ = c.SetWithTTL(k, []byte("x"), Milliseconds(float64(1+r.Intn(20))))
				case 15, 16, 17, 18, 19: // ~5% Set
					c.Set(k, []byte("x"))
				case 20, 21, 22, 23, 24: // ~5% GetAndExtend
					c.GetAndExtend(k)
				case 25: // rare Reset
					if r.Intn(200) == 0 {
						c.Reset()
					}
				default: // Get
					c.Get(k)
				}
			}
		}(w)
	}
	wg.Wait()

	checkInvariants(t, c)
	t.Logf("expired during run: %d, resident: %d", expired.Load(), c.Len())
}

// One hundred goroutines call GetOrLoad on the same key concurrently.
// The Loader should run at most once (singleflight coalescing).
func TestRace_GetOrLoad(t *testing.T) {
	var calls atomic.Int64

	opt := DefaultOptions[string, string]()
	opt.Loader = func(_ context.Context, k string) (string, error) {
		calls.Add(1)
		time.Sleep(2 * time.Millisecond) // simulate I/O
		return "v:" + k, nil
	}
	c, _ := mustCache(t, opt)

	const goroutines = 100
	key := "same-key"

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := c.GetOrLoad(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, "v:"+key, v)
		}()
	}

	close(start)
	wg.Wait()

	require.LessOrEqual(t, calls.Load(), int64(1))

	// Subsequent call should be a pure cache hit.
	v, err := c.GetOrLoad(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "v:"+key, v)
}
