package config

import "errors"

var (
	// ErrEmptyPath is returned by Load for an empty path.
	ErrEmptyPath = errors.New("config: empty config path")

	// ErrUnsupportedFormat reports an extension or format other than YAML/JSON.
	ErrUnsupportedFormat = errors.New("config: unsupported config format")

	// ErrLoadFailed wraps file read errors.
	ErrLoadFailed = errors.New("config: failed to load config")

	// ErrParseFailed wraps parser errors.
	ErrParseFailed = errors.New("config: failed to parse config")

	// ErrUnmarshalFailed wraps decoding into Config.
	ErrUnmarshalFailed = errors.New("config: failed to unmarshal config")

	// ErrInvalid reports a value that decodes but cannot configure a cache.
	ErrInvalid = errors.New("config: invalid value")
)
