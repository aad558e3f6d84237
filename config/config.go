// Package config loads cache settings from YAML or JSON.
//
// Recognized keys:
//
//	limit: 1000        # max entries, 0 disables caching
//	ttl: 30            # default TTL amount, 0 = entries never expire
//	ttlUnits: s        # ms | s | m | h
//	policy: lru        # lru | fifo
//	log:
//	  level: info      # debug | info | warn | error
//	  format: text     # text | json
//	  file: ""         # empty = stderr; otherwise rotated file
//	  maxSizeMB: 100
//	  maxBackups: 3
//	  maxAgeDays: 7
//
// Absent keys keep the values from Default.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/IvanBrykalov/ttlcache/cache"
	"github.com/IvanBrykalov/ttlcache/policy"
	"github.com/IvanBrykalov/ttlcache/policy/fifo"
	"github.com/IvanBrykalov/ttlcache/policy/lru"
)

// Format is a configuration encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config is the file representation of a cache configuration.
type Config struct {
	Limit    int     `koanf:"limit"`
	TTL      float64 `koanf:"ttl"`
	TTLUnits string  `koanf:"ttlUnits"`
	Policy   string  `koanf:"policy"`
	Log      Log     `koanf:"log"`
}

// Log configures the slog handler built by NewLogger.
type Log struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"maxSizeMB"`
	MaxBackups int    `koanf:"maxBackups"`
	MaxAgeDays int    `koanf:"maxAgeDays"`
}

// Default returns the configuration used for absent keys.
func Default() Config {
	return Config{
		Limit:    cache.DefaultLimit,
		TTLUnits: string(cache.Millisecond),
		Policy:   "lru",
		Log: Log{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load reads path and detects the format from its extension
// (.yaml, .yml or .json).
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return Parse(data, format)
}

// Parse decodes data in the given format over Default. Empty data yields
// Default unchanged.
func Parse(data []byte, format Format) (Config, error) {
	parser, err := parserFor(format)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return cfg, nil
}

// Validate reports the first value that cannot configure a cache.
func (c Config) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("%w: limit %d", ErrInvalid, c.Limit)
	}
	if _, err := cache.ParseUnit(c.TTLUnits); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch strings.ToLower(c.Policy) {
	case "", "lru", "fifo":
	default:
		return fmt.Errorf("%w: policy %q", ErrInvalid, c.Policy)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// Apply validates c and copies the cache settings into opt. Fields of opt
// that have no file representation (callbacks, Loader, Metrics, Clock,
// Logger) are left alone.
func Apply[K comparable, V any](c Config, opt *cache.Options[K, V]) error {
	if err := c.Validate(); err != nil {
		return err
	}
	unit, _ := cache.ParseUnit(c.TTLUnits)

	opt.Limit = c.Limit
	opt.TTL = c.TTL
	opt.TTLUnits = unit
	opt.Policy = policyFor[K, V](c.Policy)
	return nil
}

func policyFor[K comparable, V any](name string) policy.Policy[K, V] {
	if strings.EqualFold(name, "fifo") {
		return fifo.New[K, V]()
	}
	return lru.New[K, V]()
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, s)
	}
	return l, nil
}
