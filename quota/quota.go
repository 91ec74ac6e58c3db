// Package quota enforces per-fingerprint request quotas inside a rolling
// fixed window backed by atomic cache increments.
package quota

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"time"

	"github.com/pitabwire/util"

	"github.com/chatkitd/chatkitd/cache"
)

const (
	defaultKeyPrefix = "quota"
	// ttlOffset keeps a counter alive marginally past its window so a
	// read racing the expiry still observes it.
	ttlOffset = time.Second
)

// Config defines fixed-window counter limiter settings.
type Config struct {
	Window    time.Duration
	KeyPrefix string
	// FailOpen admits requests when the counter backend errors.
	FailOpen bool
}

// DefaultConfig returns the 60-second production window.
func DefaultConfig() *Config {
	return &Config{
		Window:    time.Minute,
		KeyPrefix: defaultKeyPrefix,
		FailOpen:  false,
	}
}

// Limiter counts session requests per fingerprint within a fixed window.
// The window is not sliding: a burst at a window boundary can admit up to
// twice the limit inside ~one window length. Concurrent increments for the
// same fingerprint may race and under-count by one; both are accepted.
type Limiter struct {
	counters cache.Store
	config   Config
}

// NewLimiter creates a limiter over the supplied counter store.
func NewLimiter(counters cache.Store, cfg *Config) *Limiter {
	config := *DefaultConfig()
	if cfg != nil {
		config = *cfg
		if config.Window <= 0 {
			config.Window = time.Minute
		}
		if config.KeyPrefix == "" {
			config.KeyPrefix = defaultKeyPrefix
		}
	}

	return &Limiter{counters: counters, config: config}
}

// Allow checks and increments the fingerprint's counter against limit. The
// counter self-expires at window end; there is no explicit decrement.
func (l *Limiter) Allow(ctx context.Context, fingerprint string, limit int) bool {
	if l == nil || l.counters == nil || limit <= 0 {
		return true
	}

	key := l.config.KeyPrefix + ":" + fingerprint
	count, err := l.counters.Increment(ctx, key, 1)
	if err != nil {
		util.Log(ctx).WithError(err).WithField("fingerprint", fingerprint).
			Error("quota counter unavailable")
		return l.config.FailOpen
	}

	if count == 1 {
		_ = l.counters.Expire(ctx, key, l.config.Window+ttlOffset)
	}

	return count <= int64(limit)
}

// Window returns the configured window duration, for Retry-After hints.
func (l *Limiter) Window() time.Duration {
	return l.config.Window
}

// ClientIP extracts the caller address, honoring the forwarding headers a
// fronting proxy sets. Anything that does not parse as a real IP is
// bucketed under "unknown" rather than trusted verbatim.
func ClientIP(r *http.Request) string {
	if r == nil {
		return "unknown"
	}

	ip := util.GetIP(r)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if net.ParseIP(ip) == nil {
		return "unknown"
	}
	return ip
}

// FingerprintRequest derives the rate-limit key for an incoming request.
func FingerprintRequest(r *http.Request) string {
	userAgent := ""
	if r != nil {
		userAgent = r.UserAgent()
	}
	return Fingerprint(ClientIP(r), userAgent)
}

// Fingerprint derives the rate-limit key from the caller's network address
// and declared user agent.
func Fingerprint(remoteAddr, userAgent string) string {
	ip := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		ip = host
	}
	if net.ParseIP(ip) == nil {
		ip = "unknown"
	}

	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}
