// Package ratelimit keeps one token bucket per client IP.
package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

// Visitors is an LRU of per-IP limiters. Idle entries are dropped after ttl
// once the janitor runs.
type Visitors struct {
	mu          sync.Mutex
	cache       *lru.Cache[string, *visitor]
	limit       rate.Limit
	burst       int
	ttl         time.Duration
	now         func() time.Time
	janitorOnce sync.Once
}

func NewVisitors(limit, burst, cacheSize int, ttl time.Duration) *Visitors {
	cache, err := lru.New[string, *visitor](cacheSize)
	if err != nil {
		// only fails for a non-positive size
		cache, _ = lru.New[string, *visitor](1)
	}
	return &Visitors{
		cache: cache,
		limit: rate.Limit(limit),
		burst: burst,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Allow reports whether host may make one more request now.
func (v *Visitors) Allow(host string) bool {
	v.mu.Lock()
	vis, ok := v.cache.Get(host)
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.cache.Add(host, vis)
	}
	vis.last = v.now()
	v.mu.Unlock()

	return vis.limiter.Allow()
}

// Evict removes visitors idle for longer than ttl and returns how many went.
func (v *Visitors) Evict() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := 0
	for _, key := range v.cache.Keys() {
		if vis, ok := v.cache.Peek(key); ok && v.now().Sub(vis.last) > v.ttl {
			v.cache.Remove(key)
			n++
		}
	}
	return n
}

func (v *Visitors) Len() int {
	return v.cache.Len()
}

// StartJanitor evicts idle visitors every ttl until ctx is done. Only the
// first call starts a goroutine.
func (v *Visitors) StartJanitor(ctx context.Context) {
	v.janitorOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(v.ttl)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					v.Evict()
				}
			}
		}()
	})
}
