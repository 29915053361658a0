package cache

import (
	"context"
	"crypto/subtle"
	"sort"
	"sync"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero = never
}

// MemoryCache implements Store and AttemptLog in process. Expiry follows the injected clock.
type MemoryCache struct {
	mu       sync.Mutex
	clock    clock.Clock
	entries  map[string]memoryEntry
	attempts map[string][]time.Time
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache(clk clock.Clock) *MemoryCache {
	if clk == nil {
		clk = clock.Real{}
	}
	return &MemoryCache{
		clock:    clk,
		entries:  make(map[string]memoryEntry),
		attempts: make(map[string][]time.Time),
	}
}

func (c *MemoryCache) live(k string) (memoryEntry, bool) {
	e, ok := c.entries[k]
	if !ok {
		return e, false
	}
	if !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, k)
		return e, false
	}
	return e, true
}

func (c *MemoryCache) entry(value string, ttl time.Duration) memoryEntry {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = c.clock.Now().Add(ttl)
	}
	return e
}

func (c *MemoryCache) Set(_ context.Context, namespace, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[namespace+":"+key] = c.entry(value, ttl)
	return nil
}

func (c *MemoryCache) Get(_ context.Context, namespace, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(namespace + ":" + key)
	if !ok {
		return "", ErrMiss
	}
	return e.value, nil
}

func (c *MemoryCache) Delete(_ context.Context, namespace, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, namespace+":"+key)
	return nil
}

func (c *MemoryCache) SetNX(_ context.Context, namespace, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := namespace + ":" + key
	if _, ok := c.live(k); ok {
		return false, nil
	}
	c.entries[k] = c.entry(value, ttl)
	return true, nil
}

func (c *MemoryCache) CompareAndDelete(_ context.Context, namespace, key, expected string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := namespace + ":" + key
	e, ok := c.live(k)
	if !ok || subtle.ConstantTimeCompare([]byte(e.value), []byte(expected)) != 1 {
		return false, nil
	}
	delete(c.entries, k)
	return true, nil
}

func (c *MemoryCache) Add(_ context.Context, key string, at time.Time, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := append(c.attempts[key], at)
	sort.Slice(events, func(i, j int) bool { return events[i].Before(events[j]) })
	c.attempts[key] = events
	return nil
}

func (c *MemoryCache) Window(_ context.Context, key string, since time.Time) (int, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.attempts[key]
	i := sort.Search(len(events), func(i int) bool { return !events[i].Before(since) })
	events = events[i:]
	if len(events) == 0 {
		delete(c.attempts, key)
		return 0, time.Time{}, nil
	}
	c.attempts[key] = events
	return len(events), events[0], nil
}

func (c *MemoryCache) Clear(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, key)
	return nil
}
