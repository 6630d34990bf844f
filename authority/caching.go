package authority

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a verdict is reused before jarvis-auth is
// asked again.
const DefaultCacheTTL = time.Minute

// Logger is the minimal logging surface CachingClient needs. It is
// satisfied by the adapters in the root package.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Metrics is the minimal metrics surface CachingClient needs.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
}

// Cache stores validation verdicts for a bounded time. Implementations must
// be safe for concurrent use. The built-in implementation is process-local;
// supply your own to share verdicts across instances.
type Cache interface {
	Get(key string) (*AppValidationResult, bool)
	Set(key string, result *AppValidationResult, ttl time.Duration)
}

// memoryCache is a mutex-guarded map with lazy expiry. The key space is the
// set of distinct credential pairs that talk to this service, which is small
// in practice, so no capacity bound is kept.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
	now     func() time.Time
}

type memoryCacheEntry struct {
	result    *AppValidationResult
	expiresAt time.Time
}

func newMemoryCache(now func() time.Time) *memoryCache {
	return &memoryCache{
		entries: map[string]memoryCacheEntry{},
		now:     now,
	}
}

func (c *memoryCache) Get(key string) (*AppValidationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.result, true
}

func (c *memoryCache) Set(key string, result *AppValidationResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryCacheEntry{
		result:    result,
		expiresAt: c.now().Add(ttl),
	}
}

// CachingClient wraps a Client and memoizes its verdicts for a bounded
// time. Both grants and denials are cached; unavailability never is. Under
// a concurrent burst for the same uncached pair each caller goes remote,
// which is accepted over the complexity of request coalescing.
type CachingClient struct {
	client  *Client
	cache   Cache
	ttl     time.Duration
	logger  Logger
	metrics Metrics
	now     func() time.Time
}

// CachingOption configures a CachingClient.
type CachingOption func(*CachingClient) error

// WithCacheTTL sets how long verdicts are reused. A zero TTL disables
// caching.
//
// Default: DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) CachingOption {
	return func(c *CachingClient) error {
		if ttl < 0 {
			return errors.New("cache TTL cannot be negative")
		}
		c.ttl = ttl
		return nil
	}
}

// WithCache replaces the built-in in-memory cache.
func WithCache(cache Cache) CachingOption {
	return func(c *CachingClient) error {
		if cache == nil {
			return errors.New("cache cannot be nil")
		}
		c.cache = cache
		return nil
	}
}

// WithLogger sets the logger used for cache events.
func WithLogger(logger Logger) CachingOption {
	return func(c *CachingClient) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink used for cache events.
func WithMetrics(metrics Metrics) CachingOption {
	return func(c *CachingClient) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// WithClockFunc overrides the clock used for cache expiry. Intended for
// tests.
func WithClockFunc(now func() time.Time) CachingOption {
	return func(c *CachingClient) error {
		if now == nil {
			return errors.New("clock function cannot be nil")
		}
		c.now = now
		return nil
	}
}

// NewCachingClient builds and returns a new *CachingClient. It accepts
// both ClientOption values, which configure the underlying Client, and
// CachingOption values, which configure the cache layer.
func NewCachingClient(opts ...interface{}) (*CachingClient, error) {
	var clientOpts []ClientOption

	c := &CachingClient{
		ttl: DefaultCacheTTL,
		now: time.Now,
	}

	for _, opt := range opts {
		switch o := opt.(type) {
		case ClientOption:
			clientOpts = append(clientOpts, o)
		case CachingOption:
			if err := o(c); err != nil {
				return nil, fmt.Errorf("invalid option: %w", err)
			}
		default:
			return nil, fmt.Errorf("invalid option type: %T", opt)
		}
	}

	client, err := NewClient(clientOpts...)
	if err != nil {
		return nil, err
	}
	c.client = client

	if c.cache == nil {
		c.cache = newMemoryCache(c.now)
	}

	return c, nil
}

// Validate returns the cached verdict for the credential pair when one is
// fresh, and otherwise asks jarvis-auth and caches the answer. The remote
// call is detached from the caller's cancellation so a started validation
// still populates the cache; a cancelled caller gets its context error
// after the cache is written.
func (c *CachingClient) Validate(ctx context.Context, appID, appKey string) (*AppValidationResult, error) {
	if c.ttl == 0 {
		return c.client.Validate(ctx, appID, appKey)
	}

	key := cacheKey(appID, appKey)
	if result, ok := c.cache.Get(key); ok {
		c.debugf("app credential cache hit for app %q", appID)
		c.count("hit")
		return result, nil
	}

	c.debugf("app credential cache miss for app %q", appID)
	c.count("miss")

	result, err := c.client.Validate(context.WithoutCancel(ctx), appID, appKey)
	if err != nil {
		c.warnf("app credential validation unavailable for app %q: %v", appID, err)
		return nil, err
	}

	c.cache.Set(key, result, c.ttl)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// cacheKey derives the cache key from both halves of the credential pair so
// a rotated key cannot reuse a stale verdict.
func cacheKey(appID, appKey string) string {
	sum := sha256.Sum256([]byte(appID + "\x00" + appKey))
	return hex.EncodeToString(sum[:])
}

func (c *CachingClient) debugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}

func (c *CachingClient) warnf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warnf(format, args...)
	}
}

func (c *CachingClient) count(event string) {
	if c.metrics != nil {
		c.metrics.IncCounter("auth_cache_events_total", map[string]string{"event": event})
	}
}
