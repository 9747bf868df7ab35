package settings

import (
	"container/list"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"reply_server/core/domain"
)

// CacheConfig configures the in-process settings cache.
type CacheConfig struct {
	MaxItems int           // default 1000
	TTL      time.Duration // default 2 minutes
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxItems: 1000,
		TTL:      2 * time.Minute,
	}
}

// settingsCache keeps encoded settings per user with TTL and LRU eviction.
// Entries are stored encoded so callers never share a mutable *Settings.
type settingsCache struct {
	mu       sync.Mutex
	maxItems int
	ttl      time.Duration
	order    *list.List // front = most recently used
	entries  map[string]*list.Element

	hits   int64
	misses int64
}

type cacheEntry struct {
	userID    string
	value     []byte
	expiresAt time.Time
}

func newSettingsCache(cfg CacheConfig) *settingsCache {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultCacheConfig().MaxItems
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig().TTL
	}
	return &settingsCache{
		maxItems: cfg.MaxItems,
		ttl:      cfg.TTL,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (c *settingsCache) get(userID string) (*domain.Settings, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[userID]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(el)
		c.misses++
		return nil, false
	}

	var s domain.Settings
	if err := json.Unmarshal(entry.value, &s); err != nil {
		c.removeElement(el)
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return &s, true
}

func (c *settingsCache) set(userID string, s *domain.Settings) {
	value, err := json.Marshal(s)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[userID]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.maxItems {
		c.removeElement(c.order.Back())
	}
	c.entries[userID] = c.order.PushFront(&cacheEntry{
		userID:    userID,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
}

func (c *settingsCache) invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[userID]; ok {
		c.removeElement(el)
	}
}

func (c *settingsCache) removeElement(el *list.Element) {
	entry := c.order.Remove(el).(*cacheEntry)
	delete(c.entries, entry.userID)
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Items   int     `json:"items"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

func (c *settingsCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CacheStats{Items: c.order.Len(), Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
