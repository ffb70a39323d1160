// Package cache implements the result cache: a fingerprint-keyed
// store of SearchResponse values, guarded by a circuit breaker so that a
// failing backend degrades to a miss instead of failing the request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/bmeyer99/docaiche/internal/apperr"
	"github.com/bmeyer99/docaiche/internal/model"
)

// Store is the backend contract a Cache dispatches through. The redis
// client satisfies it directly via the adapter in this file; tests use
// miniredis behind the same adapter.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ErrMiss is returned by Store.Get when the key is absent. It is not
// itself an error condition for the cache: Lookup reports it as a plain
// miss, (nil, false).
var ErrMiss = errors.New("cache: miss")

// redisStore adapts *redis.Client to Store.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis client as a Store.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Config configures a Cache.
type Config struct {
	// Store is the backend. Required.
	Store Store
	// OperationTimeout bounds every Get/Set call. Defaults to 500ms per
	// the cache_operation_timeout default.
	OperationTimeout time.Duration
	// DefaultTTL is used when Store writes a SearchResponse with no
	// explicit TTL override.
	DefaultTTL time.Duration
	// BreakerFailureThreshold is consecutive-failure count that trips the
	// breaker open. Defaults to 3.
	BreakerFailureThreshold uint32
	// BreakerOpenDuration is how long the breaker stays open before
	// allowing a probe request. Defaults to 2s.
	BreakerOpenDuration time.Duration
}

func (c *Config) validate() error {
	if c.Store == nil {
		return errors.New("cache config: store is required")
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 500 * time.Millisecond
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = time.Hour
	}
	if c.BreakerFailureThreshold == 0 {
		c.BreakerFailureThreshold = 3
	}
	if c.BreakerOpenDuration <= 0 {
		c.BreakerOpenDuration = 2 * time.Second
	}
	return nil
}

// Cache is the fingerprint-keyed result cache.
type Cache struct {
	store   Store
	timeout time.Duration
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	lookups singleflight.Group
}

// New builds a Cache from cfg.
func New(cfg *Config) (*Cache, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	settings := gobreaker.Settings{
		Name:        "result-cache",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.BreakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
	}

	return &Cache{
		store:   cfg.Store,
		timeout: cfg.OperationTimeout,
		ttl:     cfg.DefaultTTL,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}, nil
}

// lookupOutcome is what the breaker-guarded closure in Lookup returns: a
// plain miss is not a backend fault, so it must reach the breaker as a
// success (nil error) and be distinguished from a hit here instead.
type lookupOutcome struct {
	resp *model.SearchResponse
	hit  bool
}

// Lookup fetches the SearchResponse for fingerprint. A breaker trip, a
// backend error, or a timeout are all treated identically: a cache miss,
// never a surfaced error (cache faults are local per the error taxonomy).
// A plain ErrMiss is resolved inside the breaker-guarded closure as a
// successful outcome, so cold-cache traffic never trips the breaker; only
// genuine backend faults count toward
// ConsecutiveFailures. Concurrent lookups for the same fingerprint (a
// thundering herd on a just-expired popular query) are coalesced through
// singleflight so only one of them actually hits the breaker/backend; the
// rest wait on and share its result.
func (c *Cache) Lookup(ctx context.Context, fingerprint string) (*model.SearchResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	k := key(fingerprint)
	result, err, _ := c.lookups.Do(k, func() (any, error) {
		return c.breaker.Execute(func() (any, error) {
			raw, err := c.store.Get(ctx, k)
			if errors.Is(err, ErrMiss) {
				return lookupOutcome{}, nil
			}
			if err != nil {
				return nil, err
			}
			var resp model.SearchResponse
			if err := json.Unmarshal(raw, &resp); err != nil {
				return nil, fmt.Errorf("unmarshal cached response: %w", err)
			}
			return lookupOutcome{resp: &resp, hit: true}, nil
		})
	})
	if err != nil {
		return nil, false
	}
	outcome := result.(lookupOutcome)
	if !outcome.hit {
		return nil, false
	}
	// Each waiter needs its own copy: singleflight hands the same
	// *SearchResponse to every caller sharing this Do, and CacheHit must
	// not be mutated on a value another goroutine might still be reading.
	resp := *outcome.resp
	resp.CacheHit = true
	return &resp, true
}

// Store writes resp under fingerprint with the configured default TTL. A
// backend failure is swallowed (cache faults never fail the write path
// either) but returned to the caller for logging.
func (c *Cache) Store(ctx context.Context, fingerprint string, resp *model.SearchResponse) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := json.Marshal(resp)
	if err != nil {
		return apperr.CacheFault("marshal search response", err)
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.store.Set(ctx, key(fingerprint), raw, c.ttl)
	})
	if err != nil {
		return apperr.CacheFault("store search response", err)
	}
	return nil
}

// Name satisfies obs.HealthChecker.
func (c *Cache) Name() string { return "result_cache" }

// HealthCheck reports the breaker's current state as a health signal.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return errors.New("result cache breaker is open")
	}
	return nil
}

func key(fingerprint string) string {
	return "docaiche:search:" + fingerprint
}
