// Package cache provides the byte-level key-value facility backing option
// storage, rate-limit counters and other shared state. Backends are selected
// by DSN scheme; all of them guarantee read-after-write consistency for a
// single key but no cross-key transactionality.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Store is the low-level cache interface that works with bytes.
// A ttl of zero means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	SupportsPerKeyTTL() bool
	Close() error
}

// Opener creates a Store from parsed DSN options.
type Opener func(opts Options) (Store, error)

var openers = map[string]Opener{}

// Register makes a backend available to Open under the given DSN scheme.
func Register(scheme string, opener Opener) {
	openers[scheme] = opener
}

// Options holds backend connection configuration.
type Options struct {
	DSN      *url.URL
	Password string
}

var ErrUnknownScheme = errors.New("cache: unknown backend scheme")

// Open selects a backend by DSN scheme. "memory://" yields the in-process
// store; backends such as redis and valkey register themselves on import.
func Open(dsn string) (Store, error) {
	if dsn == "" {
		dsn = "memory://"
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: parse dsn: %w", err)
	}

	if parsed.Scheme == "" || parsed.Scheme == "memory" {
		return NewInMemory(), nil
	}

	opener, ok := openers[parsed.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, parsed.Scheme)
	}

	opts := Options{DSN: parsed}
	if pw, set := parsed.User.Password(); set {
		opts.Password = pw
	}

	return opener(opts)
}
