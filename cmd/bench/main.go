// Command bench runs a synthetic TTL workload against the cache and exposes
// Prometheus metrics and pprof while it runs.
//
// Usage:
//
//	bench [flags]
//
// Settings come from --config (YAML/JSON, see package config) and are then
// overridden by any flag given explicitly on the command line.
//
// Examples:
//
//	bench --duration 30s --reads 90
//	bench --config bench.yaml --ttl 250 --ttl-spread 8
//	bench --http :9090 --log-file /tmp/bench.log
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/ttlcache/cache"
	"github.com/IvanBrykalov/ttlcache/config"
	pmet "github.com/IvanBrykalov/ttlcache/metrics/prom"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "bench:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "TTL cache load generator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file (.yaml, .yml, .json)"},

			&cli.IntFlag{Name: "limit", Value: 100_000, Usage: "cache entry limit"},
			&cli.FloatFlag{Name: "ttl", Value: 500, Usage: "base TTL amount in --ttl-units (0 = no expiry)"},
			&cli.StringFlag{Name: "ttl-units", Value: "ms", Usage: "ms | s | m | h"},
			&cli.IntFlag{Name: "ttl-spread", Value: 4, Usage: "number of distinct TTLs used by writers"},
			&cli.StringFlag{Name: "policy", Value: "lru", Usage: "lru | fifo"},

			&cli.IntFlag{Name: "workers", Value: 2 * runtime.GOMAXPROCS(0), Usage: "worker goroutines"},
			&cli.DurationFlag{Name: "duration", Value: 10 * time.Second, Usage: "benchmark duration"},
			&cli.IntFlag{Name: "reads", Value: 80, Usage: "read percentage [0..100]"},
			&cli.IntFlag{Name: "extend", Value: 10, Usage: "percentage of reads that extend the TTL"},
			&cli.IntFlag{Name: "keys", Value: 1_000_000, Usage: "keyspace size"},
			&cli.FloatFlag{Name: "zipf-s", Value: 1.1, Usage: "Zipf s > 1 (skew)"},
			&cli.FloatFlag{Name: "zipf-v", Value: 1.0, Usage: "Zipf v"},
			&cli.Int64Flag{Name: "seed", Value: time.Now().UnixNano(), Usage: "random seed"},

			&cli.StringFlag{Name: "http", Value: ":8080", Usage: "serve /metrics and /debug/pprof at addr (empty = disabled)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug | info | warn | error"},
			&cli.StringFlag{Name: "log-file", Usage: "write logs to a rotated file instead of stderr"},
		},
		Action: run,
	}
}

// settings is the resolved benchmark configuration.
type settings struct {
	cfg       config.Config
	spread    int
	workers   int
	duration  time.Duration
	readPct   int
	extendPct int
	keys      int
	zipfS     float64
	zipfV     float64
	seed      int64
	httpAddr  string
}

func resolve(cmd *cli.Command) (settings, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return settings{}, err
		}
	}
	// Explicit flags win over the file; defaults only fill a missing file.
	if cmd.IsSet("limit") || cmd.String("config") == "" {
		cfg.Limit = cmd.Int("limit")
	}
	if cmd.IsSet("ttl") || cmd.String("config") == "" {
		cfg.TTL = cmd.Float("ttl")
	}
	if cmd.IsSet("ttl-units") || cmd.String("config") == "" {
		cfg.TTLUnits = cmd.String("ttl-units")
	}
	if cmd.IsSet("policy") || cmd.String("config") == "" {
		cfg.Policy = cmd.String("policy")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-file") {
		cfg.Log.File = cmd.String("log-file")
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, err
	}

	s := settings{
		cfg:       cfg,
		spread:    max(cmd.Int("ttl-spread"), 1),
		workers:   max(cmd.Int("workers"), 1),
		duration:  cmd.Duration("duration"),
		readPct:   cmd.Int("reads"),
		extendPct: cmd.Int("extend"),
		keys:      max(cmd.Int("keys"), 1),
		zipfS:     cmd.Float("zipf-s"),
		zipfV:     cmd.Float("zipf-v"),
		seed:      cmd.Int64("seed"),
		httpAddr:  cmd.String("http"),
	}
	if s.zipfS <= 1 {
		return settings{}, fmt.Errorf("zipf-s must be > 1, got %v", s.zipfS)
	}
	return s, nil
}

// counters are updated by workers and read once for the report.
type counters struct {
	reads, writes, hits, misses, extends, expired atomic.Uint64
}

func run(ctx context.Context, cmd *cli.Command) error {
	s, err := resolve(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := s.cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	// ---- Build cache ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var cnt counters
	opt := cache.Options[string, string]{
		Metrics: pmet.New(reg, "ttlcache", "bench", nil),
		Logger:  logger,
		OnExpire: cache.ExpireFunc[string, string](func(string, string) {
			cnt.expired.Add(1)
		}),
	}
	if err := config.Apply(s.cfg, &opt); err != nil {
		return err
	}
	c, err := cache.New(opt)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	logger.LogAttrs(ctx, slog.LevelInfo, "bench: starting",
		slog.Int("limit", s.cfg.Limit),
		slog.Float64("ttl", s.cfg.TTL),
		slog.String("ttl_units", s.cfg.TTLUnits),
		slog.Int("ttl_spread", s.spread),
		slog.String("policy", s.cfg.Policy),
		slog.Int("workers", s.workers),
		slog.Duration("duration", s.duration),
		slog.Int64("seed", s.seed),
	)

	runCtx, cancel := context.WithTimeout(ctx, s.duration)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	// ---- HTTP: /metrics + /debug/pprof ----
	if s.httpAddr != "" {
		srv := &http.Server{Addr: s.httpAddr, Handler: newMux(reg), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("bench: serving http", slog.String("addr", s.httpAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// ---- Load generation ----
	start := time.Now()
	for w := 0; w < s.workers; w++ {
		g.Go(func() error {
			work(gctx, c, s, w, &cnt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	report(logger, c, s, &cnt, elapsed)
	return nil
}

// work issues operations until ctx is done. Each worker owns its RNG
// (rand.Rand is not goroutine-safe).
func work(ctx context.Context, c cache.Cache[string, string], s settings, id int, cnt *counters) {
	r := rand.New(rand.NewSource(s.seed + int64(id)*9973))
	zipf := rand.NewZipf(r, s.zipfS, s.zipfV, uint64(s.keys-1))
	unit, _ := cache.ParseUnit(s.cfg.TTLUnits)

	for ctx.Err() == nil {
		k := "k:" + strconv.FormatUint(zipf.Uint64(), 10)

		if r.Intn(100) >= s.readPct {
			cnt.writes.Add(1)
			// A few distinct TTLs keep most writes in existing buckets.
			ttl := cache.TTL{Amount: s.cfg.TTL * float64(1+r.Intn(s.spread)), Unit: unit}
			_ = c.SetWithTTL(k, "v"+strconv.Itoa(r.Int()), ttl)
			continue
		}

		cnt.reads.Add(1)
		var ok bool
		if r.Intn(100) < s.extendPct {
			cnt.extends.Add(1)
			_, ok = c.GetAndExtend(k)
		} else {
			_, ok = c.Get(k)
		}
		if ok {
			cnt.hits.Add(1)
		} else {
			cnt.misses.Add(1)
		}
	}
}

func report(logger *slog.Logger, c cache.Cache[string, string], s settings, cnt *counters, elapsed time.Duration) {
	reads, writes := cnt.reads.Load(), cnt.writes.Load()
	hits := cnt.hits.Load()
	hitRate := 0.0
	if reads > 0 {
		hitRate = float64(hits) / float64(reads) * 100
	}
	ops := reads + writes
	st := c.Stats()

	fmt.Printf("policy=%s limit=%d ttl=%v%s spread=%d workers=%d keys=%d dur=%v seed=%d\n",
		s.cfg.Policy, s.cfg.Limit, s.cfg.TTL, s.cfg.TTLUnits, s.spread, s.workers, s.keys, elapsed, s.seed)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d  extends=%d\n",
		ops, float64(ops)/elapsed.Seconds(), reads, writes, cnt.extends.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hits, cnt.misses.Load(), hitRate)
	fmt.Printf("expired=%d (callbacks %d)  evicted=%d  Len()=%d\n",
		st.Expirations, cnt.expired.Load(), st.Evictions, st.Entries)

	logger.Info("bench: done",
		slog.Uint64("ops", ops),
		slog.Float64("hit_rate", hitRate),
		slog.Uint64("expired", st.Expirations),
		slog.Uint64("evicted", st.Evictions),
	)
}

func newMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
