// Package otelmetrics exports cache metrics through an OpenTelemetry meter.
package otelmetrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/IvanBrykalov/ttlcache/cache"
)

const scope = "github.com/IvanBrykalov/ttlcache"

const (
	metricNameLookups  = "cache.lookups"
	metricNameRemovals = "cache.removals"
	metricNameEntries  = "cache.entries"
)

// Adapter implements cache.Metrics on top of OpenTelemetry instruments.
type Adapter struct {
	lookups  metric.Int64Counter
	removals metric.Int64Counter
	entries  metric.Int64Gauge

	hit, miss metric.AddOption
	reasons   map[cache.EvictReason]metric.AddOption
	base      metric.RecordOption
}

// New builds an Adapter. A nil provider falls back to the global one.
// name identifies the cache and is attached to every point as cache.name.
func New(mp metric.MeterProvider, name string) (*Adapter, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(scope)

	lookups, err := meter.Int64Counter(metricNameLookups,
		metric.WithDescription("Cache lookups by result (hit, miss)"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}
	removals, err := meter.Int64Counter(metricNameRemovals,
		metric.WithDescription("Entries removed by the cache itself, by reason"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}
	entries, err := meter.Int64Gauge(metricNameEntries,
		metric.WithDescription("Resident entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	cacheName := attribute.String("cache.name", name)
	a := &Adapter{
		lookups:  lookups,
		removals: removals,
		entries:  entries,
		hit:      metric.WithAttributes(cacheName, attribute.String("result", "hit")),
		miss:     metric.WithAttributes(cacheName, attribute.String("result", "miss")),
		reasons:  make(map[cache.EvictReason]metric.AddOption, 3),
		base:     metric.WithAttributes(cacheName),
	}
	for _, r := range []cache.EvictReason{cache.EvictExpired, cache.EvictCapacity, cache.EvictPolicy} {
		a.reasons[r] = metric.WithAttributes(cacheName, attribute.String("reason", r.String()))
	}
	return a, nil
}

func (a *Adapter) Hit() { a.lookups.Add(context.Background(), 1, a.hit) }

func (a *Adapter) Miss() { a.lookups.Add(context.Background(), 1, a.miss) }

// Evict counts one removal under its reason.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.removals.Add(context.Background(), 1, a.reasons[r])
}

// Size records the current entry count.
func (a *Adapter) Size(n int) {
	a.entries.Record(context.Background(), int64(n), a.base)
}

var _ cache.Metrics = (*Adapter)(nil)
