package otelmetrics

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/IvanBrykalov/ttlcache/cache"
)

func newTestMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, r *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, r.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

// sumBy returns the counter value of the data point whose attribute key
// equals val.
func sumBy(t *testing.T, agg metricdata.Aggregation, key, val string) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "want Sum[int64], got %T", agg)
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == val {
			return dp.Value
		}
	}
	return 0
}

func TestAdapter_Direct(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	a, err := New(mp, "sessions")
	require.NoError(t, err)

	a.Hit()
	a.Hit()
	a.Miss()
	a.Evict(cache.EvictCapacity)
	a.Evict(cache.EvictExpired)
	a.Evict(cache.EvictExpired)
	a.Size(5)

	got := collect(t, reader)
	assert.EqualValues(t, 2, sumBy(t, got[metricNameLookups], "result", "hit"))
	assert.EqualValues(t, 1, sumBy(t, got[metricNameLookups], "result", "miss"))
	assert.EqualValues(t, 2, sumBy(t, got[metricNameRemovals], "reason", "expired"))
	assert.EqualValues(t, 1, sumBy(t, got[metricNameRemovals], "reason", "capacity"))

	gauge, ok := got[metricNameEntries].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.EqualValues(t, 5, gauge.DataPoints[0].Value)
	name, _ := gauge.DataPoints[0].Attributes.Value("cache.name")
	assert.Equal(t, "sessions", name.AsString())
}

func TestAdapter_WiredIntoCache(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	m, err := New(mp, "tokens")
	require.NoError(t, err)

	clk := clockwork.NewFakeClock()
	opt := cache.DefaultOptions[string, string]()
	opt.Metrics = m
	opt.Clock = clk
	opt.TTL, opt.TTLUnits = 1, cache.Second
	c, err := cache.New(opt)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", "x")
	c.Set("b", "y")
	c.Get("a")
	clk.Advance(time.Second)
	c.Get("a")

	got := collect(t, reader)
	assert.EqualValues(t, 1, sumBy(t, got[metricNameLookups], "result", "hit"))
	assert.EqualValues(t, 1, sumBy(t, got[metricNameLookups], "result", "miss"))
	assert.EqualValues(t, 2, sumBy(t, got[metricNameRemovals], "reason", "expired"))
}

func TestNew_NilProviderUsesGlobal(t *testing.T) {
	a, err := New(nil, "x")
	require.NoError(t, err)
	a.Hit() // global no-op provider accepts writes
}
