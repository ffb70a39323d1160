// Package ratelimit implements the three concurrent token buckets:
// per-user, per-workspace, and global. Each bucket is backed by
// golang.org/x/time/rate, configured with a burst allowance on top of its
// steady-state capacity.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBurstMultiplier is the default burst allowance over steady-state
// capacity.
const DefaultBurstMultiplier = 1.2

// BucketSpec configures one token bucket.
type BucketSpec struct {
	RequestsPerMinute float64
	BurstMultiplier   float64 // 0 means DefaultBurstMultiplier
}

func (s BucketSpec) limiter() *rate.Limiter {
	burst := s.BurstMultiplier
	if burst <= 0 {
		burst = DefaultBurstMultiplier
	}
	ratePerSecond := s.RequestsPerMinute / 60.0
	burstSize := int(s.RequestsPerMinute * burst)
	if burstSize < 1 {
		burstSize = 1
	}
	return rate.NewLimiter(rate.Limit(ratePerSecond), burstSize)
}

// Denial describes why admission was denied and how long to wait before
// retrying.
type Denial struct {
	Bucket     string
	RetryAfter time.Duration
}

// keyedBuckets lazily creates one *rate.Limiter per key (e.g. per user id
// or per workspace id), guarded by a mutex held only for the map lookup.
type keyedBuckets struct {
	mu      sync.Mutex
	spec    BucketSpec
	buckets map[string]*rate.Limiter
}

func newKeyedBuckets(spec BucketSpec) *keyedBuckets {
	return &keyedBuckets{spec: spec, buckets: make(map[string]*rate.Limiter)}
}

func (k *keyedBuckets) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.buckets[key]
	if !ok {
		l = k.spec.limiter()
		k.buckets[key] = l
	}
	return l
}

// Limiter composes the per-user, per-workspace, and global buckets and
// performs admission checks against all three.
type Limiter struct {
	perUser      *keyedBuckets
	perWorkspace *keyedBuckets
	global       *rate.Limiter
}

// Config supplies the three bucket specs.
type Config struct {
	PerUser      BucketSpec
	PerWorkspace BucketSpec
	Global       BucketSpec
}

// New builds a Limiter from the given Config.
func New(cfg Config) *Limiter {
	return &Limiter{
		perUser:      newKeyedBuckets(cfg.PerUser),
		perWorkspace: newKeyedBuckets(cfg.PerWorkspace),
		global:       cfg.Global.limiter(),
	}
}

// Allow checks all applicable buckets for one admission attempt. It denies
// on the first exhausted bucket and returns structured limit info
// identifying which bucket and a retry-after duration. Per-user and
// per-workspace buckets are checked before the global bucket so a request
// denied by either one never consumes a global token it won't use.
func (l *Limiter) Allow(userID, workspaceID string) (bool, *Denial) {
	now := time.Now()

	if userID != "" {
		bucket := l.perUser.get(userID)
		if !bucket.AllowN(now, 1) {
			return false, &Denial{Bucket: "per_user", RetryAfter: retryAfter(bucket, now)}
		}
	}

	if workspaceID != "" {
		bucket := l.perWorkspace.get(workspaceID)
		if !bucket.AllowN(now, 1) {
			return false, &Denial{Bucket: "per_workspace", RetryAfter: retryAfter(bucket, now)}
		}
	}

	if !l.global.AllowN(now, 1) {
		return false, &Denial{Bucket: "global", RetryAfter: retryAfter(l.global, now)}
	}

	return true, nil
}

// retryAfter reports how long the caller should wait before limiter would
// next admit a token, without actually reserving that future token: the
// reservation used to compute the delay is cancelled immediately so a
// denied request never consumes a token it will never use.
func retryAfter(limiter *rate.Limiter, now time.Time) time.Duration {
	reservation := limiter.ReserveN(now, 1)
	delay := reservation.Delay()
	reservation.Cancel()
	return delay
}
