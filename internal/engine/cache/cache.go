// Package cache memoizes scorer and integration results under a TTL and a
// coarse time bucket. Concurrent requests for the same key are collapsed into
// a single computation via singleflight.
package cache

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/transition-engine/internal/engine"
)

// Key identifies one memoized computation. Fingerprint is content-based;
// Bucket keeps identical inputs arriving far apart from being treated as
// current.
type Key struct {
	LearnerID   string
	Domain      engine.Domain
	Fingerprint string
	Mode        engine.ComputeMode
	Bucket      int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%d", k.LearnerID, k.Domain, k.Fingerprint, k.Mode, k.Bucket)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is safe for concurrent use by the four parallel scorer invocations
// and across ticks.
type Cache struct {
	bucketSize time.Duration

	mu      sync.RWMutex
	entries map[string]entry

	flight singleflight.Group

	hits   uint64
	misses uint64
}

// New creates a cache with the given time-bucket size. bucketSize <= 0 falls
// back to 10s.
func New(bucketSize time.Duration) *Cache {
	if bucketSize <= 0 {
		bucketSize = 10 * time.Second
	}
	return &Cache{
		bucketSize: bucketSize,
		entries:    make(map[string]entry),
	}
}

// KeyFor builds the cache key for a learner's bundle at the current time.
// Simplified and full results never alias each other.
func (c *Cache) KeyFor(learnerID string, b engine.FeatureBundle, mode engine.ComputeMode) Key {
	return Key{
		LearnerID:   learnerID,
		Domain:      b.Domain,
		Fingerprint: b.Fingerprint(),
		Mode:        mode,
		Bucket:      time.Now().UnixNano() / int64(c.bucketSize),
	}
}

// Put stores a value directly. Used for whole-tick integration results the
// fallback ladder may reuse later.
func (c *Cache) Put(key Key, v any, ttl time.Duration) {
	c.store(key.String(), v, ttl)
}

// Peek returns a value without counting a miss toward the hit ratio and
// without computing anything.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key.String()]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// GetOrCompute returns the cached value for key when present and unexpired,
// marking hit=true. Otherwise it invokes compute, stores the result with
// now+ttl, and returns it. At most one compute runs per key at a time; late
// concurrent requesters wait for and share the in-flight result.
func GetOrCompute[T any](c *Cache, key Key, ttl time.Duration, compute func() (T, error)) (T, bool, error) {
	var zero T
	if c == nil {
		return zero, false, engine.ErrCacheUnavailable
	}
	ks := key.String()

	if v, ok := c.lookup(ks); ok {
		tv, ok := v.(T)
		if !ok {
			return zero, false, fmt.Errorf("%w: wrong value type for %s", engine.ErrCacheUnavailable, ks)
		}
		return tv, true, nil
	}

	v, err, shared := c.flight.Do(ks, func() (any, error) {
		// Double-check under the flight: another caller may have stored the
		// value between our lookup and the flight starting.
		if v, ok := c.lookup(ks); ok {
			return v, nil
		}
		tv, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(ks, tv, ttl)
		return tv, nil
	})
	if err != nil {
		return zero, false, err
	}
	tv, ok := v.(T)
	if !ok {
		return zero, false, fmt.Errorf("%w: wrong value type for %s", engine.ErrCacheUnavailable, ks)
	}
	return tv, shared, nil
}

// Invalidate drops every entry for a learner and domain, across fingerprints
// and buckets. Used when a bundle fingerprint changes materially.
func (c *Cache) Invalidate(learnerID string, d engine.Domain) {
	prefix := learnerID + "/" + string(d) + "/"
	c.mu.Lock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// HitRatio reports lifetime hit ratio; 0 when nothing was looked up yet.
func (c *Cache) HitRatio() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Len reports the live entry count, expired entries included until swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweeper evicts expired entries every interval until the returned stop
// func is called.
func (c *Cache) StartSweeper(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				c.mu.Lock()
				for k, e := range c.entries {
					if now.After(e.expiresAt) {
						delete(c.entries, k)
					}
				}
				c.mu.Unlock()
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

func (c *Cache) lookup(ks string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[ks]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		// Expired entries are never returned.
		delete(c.entries, ks)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

func (c *Cache) store(ks string, v any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[ks] = entry{value: v, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}
