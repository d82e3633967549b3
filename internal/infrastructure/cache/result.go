package cache

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/macrolens/foodrecon/internal/domain"
)

// Defaults for the normalized result cache
const (
	DefaultMaxAge  = 7 * 24 * time.Hour
	DefaultMaxSize = 1000
)

// ResultCacheConfig bounds the normalized result cache
type ResultCacheConfig struct {
	MaxAge  time.Duration
	MaxSize int
}

// DefaultResultCacheConfig returns a week of retention and 1000 entries
func DefaultResultCacheConfig() ResultCacheConfig {
	return ResultCacheConfig{MaxAge: DefaultMaxAge, MaxSize: DefaultMaxSize}
}

type entry[T any] struct {
	payload     T
	storedAt    time.Time
	accessCount int
}

// ResultStats is a point-in-time view of the cache
type ResultStats struct {
	Searches  int    `json:"searches"`
	Details   int    `json:"details"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// ResultCache holds normalized search results keyed by normalized query and
// normalized details keyed by FoodData Central id. Entries expire after MaxAge.
// When the two maps together exceed MaxSize the least accessed entries are
// evicted, oldest first among equals, split between the maps.
//
// Returned payloads are shared; callers must not modify them.
type ResultCache struct {
	mu       sync.Mutex
	maxAge   time.Duration
	maxSize  int
	now      func() time.Time
	searches map[string]*entry[[]domain.NormalizedFood]
	details  map[int64]*entry[domain.NormalizedFood]
	stats    ResultStats
	log      *zap.Logger
}

// ResultOption customizes a ResultCache
type ResultOption func(*ResultCache)

// WithClock replaces the wall clock, mainly for tests
func WithClock(now func() time.Time) ResultOption {
	return func(c *ResultCache) { c.now = now }
}

// NewResultCache creates an empty cache. Non-positive limits fall back to the defaults.
func NewResultCache(cfg ResultCacheConfig, opts ...ResultOption) *ResultCache {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	c := &ResultCache{
		maxAge:   cfg.MaxAge,
		maxSize:  cfg.MaxSize,
		now:      time.Now,
		searches: make(map[string]*entry[[]domain.NormalizedFood]),
		details:  make(map[int64]*entry[domain.NormalizedFood]),
		log:      zap.L().Named("result_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSearch returns the cached results for a normalized query
func (c *ResultCache) GetSearch(query string) ([]domain.NormalizedFood, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	foods, ok := lookup(c.searches, query, c.now(), c.maxAge)
	c.count(ok)
	return foods, ok
}

// SetSearch stores results for a normalized query
func (c *ResultCache) SetSearch(query string, foods []domain.NormalizedFood) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches[query] = &entry[[]domain.NormalizedFood]{payload: foods, storedAt: c.now()}
	c.cleanup(func(k string) bool { return k == query }, nil)
}

// GetDetail returns the cached detail record for an id
func (c *ResultCache) GetDetail(fdcID int64) (domain.NormalizedFood, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	food, ok := lookup(c.details, fdcID, c.now(), c.maxAge)
	c.count(ok)
	return food, ok
}

// SetDetail stores the detail record for an id
func (c *ResultCache) SetDetail(fdcID int64, food domain.NormalizedFood) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.details[fdcID] = &entry[domain.NormalizedFood]{payload: food, storedAt: c.now()}
	c.cleanup(nil, func(k int64) bool { return k == fdcID })
}

// Purge drops every expired entry and returns how many were removed
func (c *ResultCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	return purge(c.searches, now, c.maxAge) + purge(c.details, now, c.maxAge)
}

// Stats returns current sizes and counters
func (c *ResultCache) Stats() ResultStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Searches = len(c.searches)
	s.Details = len(c.details)
	return s
}

// Len is the total number of entries across both maps
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.searches) + len(c.details)
}

func (c *ResultCache) count(hit bool) {
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}

// cleanup evicts down to maxSize. The entry just written is never chosen.
// Half the overflow comes from searches, the rest from details, and either
// map makes up what the other cannot supply.
func (c *ResultCache) cleanup(keepSearch func(string) bool, keepDetail func(int64) bool) {
	total := len(c.searches) + len(c.details)
	if total <= c.maxSize {
		return
	}
	overflow := total - c.maxSize

	availSearch := len(c.searches)
	if keepSearch != nil {
		availSearch--
	}
	availDetail := len(c.details)
	if keepDetail != nil {
		availDetail--
	}

	fromSearch := min(overflow/2, availSearch)
	fromDetail := min(overflow-fromSearch, availDetail)
	fromSearch = min(overflow-fromDetail, availSearch)

	n := evictLeastUsed(c.searches, fromSearch, keepSearch) + evictLeastUsed(c.details, fromDetail, keepDetail)
	c.stats.Evictions += uint64(n)
	c.log.Debug("evicted entries", zap.Int("count", n), zap.Int("size", len(c.searches)+len(c.details)))
}

func lookup[K comparable, T any](m map[K]*entry[T], key K, now time.Time, maxAge time.Duration) (T, bool) {
	var zero T
	e, ok := m[key]
	if !ok {
		return zero, false
	}
	if now.Sub(e.storedAt) > maxAge {
		delete(m, key)
		return zero, false
	}
	e.accessCount++
	return e.payload, true
}

func purge[K comparable, T any](m map[K]*entry[T], now time.Time, maxAge time.Duration) int {
	n := 0
	for k, e := range m {
		if now.Sub(e.storedAt) > maxAge {
			delete(m, k)
			n++
		}
	}
	return n
}

func evictLeastUsed[K comparable, T any](m map[K]*entry[T], n int, keep func(K) bool) int {
	if n <= 0 {
		return 0
	}
	keys := make([]K, 0, len(m))
	for k := range m {
		if keep == nil || !keep(k) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := m[keys[i]], m[keys[j]]
		if a.accessCount != b.accessCount {
			return a.accessCount < b.accessCount
		}
		return a.storedAt.Before(b.storedAt)
	})
	n = min(n, len(keys))
	for _, k := range keys[:n] {
		delete(m, k)
	}
	return n
}
