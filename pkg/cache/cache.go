package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"arbiter-hq/arbiter/pkg/evaluation"
)

// Config contains configuration for the decision cache. Capacity and TTL are
// deployment configuration, not fixed constants.
type Config struct {
	// MaxEntries is the maximum number of simultaneously live entries.
	// When full, the least recently used entry is evicted.
	MaxEntries int

	// TTL is the time-to-live for entries (0 = no expiry).
	TTL time.Duration

	// CleanupInterval is how often the background sweep removes expired
	// entries. Defaults to TTL/2, clamped to a 10s minimum.
	CleanupInterval time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 10000,
		TTL:        5 * time.Minute,
	}
}

// entry is a single cached decision with its bookkeeping. Recency metadata
// is atomic so the hit path needs only the read lock.
type entry struct {
	decision  *evaluation.Decision
	createdAt time.Time
	expiresAt time.Time

	lastAccess atomic.Int64 // UnixNano of the most recent hit
	hitCount   atomic.Int64
}

// DecisionCache is a bounded, keyed cache of previously computed decisions.
// Entries expire by TTL first; at capacity the least recently used entry is
// evicted. Reads share an RWMutex read lock and never block each other: the
// recency touch on a hit is an atomic store, so Get never escalates to the
// write lock. A write racing a read for the same key returns either the old
// or the new decision, never a partial one.
//
// The cache is best-effort: callers treat any miss identically, so cache
// pressure degrades to recomputation rather than errors.
type DecisionCache struct {
	entries    map[string]*entry
	ttl        time.Duration
	maxEntries int
	mu         sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64

	stopCh          chan struct{}
	stopOnce        sync.Once
	cleanupInterval time.Duration
}

// New creates a decision cache with the given configuration.
func New(cfg Config) *DecisionCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
		if cfg.TTL > 0 {
			cleanupInterval = cfg.TTL / 2
			if cleanupInterval < 10*time.Second {
				cleanupInterval = 10 * time.Second
			}
		}
	}

	c := &DecisionCache{
		entries:         make(map[string]*entry),
		ttl:             cfg.TTL,
		maxEntries:      cfg.MaxEntries,
		stopCh:          make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}

	if cfg.TTL > 0 {
		go c.sweep()
	}

	return c
}

// Get retrieves a decision from the cache. The returned decision is a copy
// marked as a cache hit; the stored entry is never handed out directly.
func (c *DecisionCache) Get(key string) (*evaluation.Decision, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	if !ok || (c.ttl > 0 && time.Now().After(e.expiresAt)) {
		c.mu.RUnlock()
		c.misses.Add(1)
		return nil, false
	}
	// The recency touch is atomic, so a hit never takes the write lock and
	// concurrent readers proceed in parallel.
	e.lastAccess.Store(time.Now().UnixNano())
	e.hitCount.Add(1)
	decision := e.decision
	c.mu.RUnlock()

	c.hits.Add(1)
	return decision.Clone(evaluation.CacheHit), true
}

// Put stores a decision in the cache. If the cache is full and the key is
// new, the least recently used entry is evicted first.
func (c *DecisionCache) Put(key string, decision *evaluation.Decision) {
	if decision == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	now := time.Now()
	expiresAt := time.Time{}
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}

	e := &entry{
		decision:  decision,
		createdAt: now,
		expiresAt: expiresAt,
	}
	e.lastAccess.Store(now.UnixNano())
	c.entries[key] = e
}

// Delete removes an entry from the cache.
func (c *DecisionCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Size returns the current number of entries.
func (c *DecisionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Snapshot returns the current cache statistics.
func (c *DecisionCache) Snapshot() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Size(),
	}
}

// Close stops the background sweep goroutine. The cache must not be used
// after Close.
func (c *DecisionCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// evictLRU evicts the least recently accessed entry. Caller holds the write lock.
func (c *DecisionCache) evictLRU() {
	var oldestKey string
	var oldest int64

	for key, e := range c.entries {
		if at := e.lastAccess.Load(); oldestKey == "" || at < oldest {
			oldestKey = key
			oldest = at
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// sweep periodically removes expired entries until Close is called.
func (c *DecisionCache) sweep() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

// removeExpired removes all expired entries.
func (c *DecisionCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl == 0 {
		return
	}

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
