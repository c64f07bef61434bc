package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Cache is an in-memory key-value cache with per-entry TTL, optional LRU
// capacity eviction, hit/miss statistics and synchronous event notification.
//
// One mutex serializes every operation and janitor tick over the entries, the
// access order and the statistics. Events produced by an operation are
// delivered after the lock is released but before the operation returns, so
// handlers may call back into the Cache.
//
// Runtime operations never fail. Cache owns its janitor goroutine; call
// Destroy to stop it.
type Cache struct {
	mu sync.Mutex

	cfg     Config
	entries map[string]*Entry
	order   *accessOrder
	stats   *statsEngine
	events  *notifier

	clock  func() time.Time
	logger zerolog.Logger

	// Janitor ownership.
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New resolves the configuration (defaults, then environment, then opts),
// validates it and starts the janitor. An invalid configuration returns an
// error wrapping ErrInvalidConfig and no Cache.
func New(opts ...Option) (*Cache, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := ResolveConfig(o.lookupEnv, o.overrides)
	if err != nil {
		return nil, err
	}

	now := o.clock()
	c := &Cache{
		cfg:     cfg,
		entries: make(map[string]*Entry),
		order:   newAccessOrder(),
		stats:   newStatsEngine(cfg, now),
		events:  newNotifier(o.logger),
		clock:   o.clock,
		logger:  o.logger,
	}

	if o.janitor {
		c.startJanitor()
	}
	return c, nil
}

// Config returns the resolved configuration.
func (c *Cache) Config() Config {
	return c.cfg
}

// Set stores value under key for ttl. Setting an existing key replaces its
// entry. Inserting a new key into a full cache first evicts the least
// recently used key.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	size := ValueSize(value)

	c.mu.Lock()
	now := c.clock()
	var events []Event

	if _, ok := c.entries[key]; ok {
		c.order.remove(key)
	} else if !c.cfg.Unlimited() && len(c.entries) >= c.cfg.MaxKeys {
		if oldest, found := c.order.oldest(); found {
			c.removeLocked(oldest)
			c.stats.evicted(1, EvictionLRU)
			events = append(events, EvictionEvent{Key: oldest, Reason: EvictionLRU, Timestamp: now})
		}
	}

	c.entries[key] = newEntry(value, now, ttl)
	c.order.touch(key)
	events = append(events, SetEvent{Key: key, ValueSize: size, TTL: ttl, Timestamp: now})
	c.mu.Unlock()

	c.events.publish(events...)
}

// SetDefault stores value under key with DefaultTTL.
func (c *Cache) SetDefault(key string, value any) {
	c.Set(key, value, DefaultTTL)
}

// Get returns the value stored under key. An expired entry is removed and
// reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	now := c.clock()
	e, ok := c.entries[key]

	switch {
	case !ok:
		c.stats.miss(now)
		c.mu.Unlock()
		c.events.publish(GetEvent{Key: key, Hit: false, Timestamp: now})
		return nil, false

	case e.ExpiredAt(now):
		c.removeLocked(key)
		c.stats.evicted(1, EvictionTTL)
		c.stats.miss(now)
		c.mu.Unlock()
		c.events.publish(
			EvictionEvent{Key: key, Reason: EvictionTTL, Timestamp: now},
			GetEvent{Key: key, Hit: false, Timestamp: now},
		)
		return nil, false
	}

	c.order.touch(key)
	c.stats.hit(now)
	value := e.Value
	c.mu.Unlock()

	c.events.publish(GetEvent{Key: key, Hit: true, Timestamp: now})
	return value, true
}

// Has reports whether key holds a live entry. Like Get it removes an expired
// entry, but it neither counts a hit or miss nor refreshes recency.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return false
	}

	now := c.clock()
	if !e.ExpiredAt(now) {
		c.mu.Unlock()
		return true
	}

	c.removeLocked(key)
	c.stats.evicted(1, EvictionTTL)
	c.mu.Unlock()

	c.events.publish(EvictionEvent{Key: key, Reason: EvictionTTL, Timestamp: now})
	return false
}

// Delete removes key and reports whether it was present.
// The removal is published as a manual eviction.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	if _, ok := c.entries[key]; !ok {
		c.mu.Unlock()
		return false
	}
	now := c.clock()
	c.removeLocked(key)
	c.stats.evicted(1, EvictionManual)
	c.mu.Unlock()

	c.events.publish(EvictionEvent{Key: key, Reason: EvictionManual, Timestamp: now})
	return true
}

// Cleanup removes every expired entry in one sweep and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	events, removed := c.cleanupLocked(c.clock())
	c.mu.Unlock()

	c.events.publish(events...)
	return removed
}

// Clear removes every entry. Cleared entries count as evictions.
func (c *Cache) Clear() {
	c.mu.Lock()
	events := c.clearLocked(c.clock())
	c.mu.Unlock()

	c.events.publish(events...)
}

// RotateIntervals closes the current statistics interval if its duration has
// elapsed and reports whether it did. The janitor calls it on every tick.
func (c *Cache) RotateIntervals() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.intervals.rotate(c.clock())
}

// Destroy stops the janitor, waits for a tick in flight and clears all entries
// and statistics. Calling it again is a no-op. It must not be called from an
// event handler running on the janitor goroutine.
func (c *Cache) Destroy() {
	c.stopJanitor()

	c.mu.Lock()
	now := c.clock()
	events := c.clearLocked(now)
	c.stats.reset(now)
	c.mu.Unlock()

	c.events.publish(events...)
}

// Len returns the number of stored entries, including expired ones not yet removed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the stored keys from least to most recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.keys()
}

// Peek returns the entry stored under key without touching recency,
// statistics or expiry.
func (c *Cache) Peek(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Stats assembles a snapshot of counters, size, memory and statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	return Stats{
		Counters:      c.stats.counters,
		HitRate:       c.stats.counters.HitRate(),
		Size:          len(c.entries),
		Memory:        c.memoryLocked(),
		RollingWindow: c.stats.window.snapshot(),
		TimeBased:     c.stats.intervals.snapshot(now),
		Config:        c.cfg,
	}
}

// Counters returns the cumulative counters.
func (c *Cache) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.counters
}

// RollingWindowStats returns a snapshot of the rolling window.
func (c *Cache) RollingWindowStats() WindowStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.window.snapshot()
}

// TimeBasedStats returns a snapshot of interval statistics.
func (c *Cache) TimeBasedStats() TimeBasedStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.intervals.snapshot(c.clock())
}

// IntervalHistory returns every retained closed interval, oldest first.
func (c *Cache) IntervalHistory() []Interval {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.intervals.closed()
}

// MemoryUsage estimates the memory held by stored entries.
func (c *Cache) MemoryUsage() MemoryUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memoryLocked()
}

func (c *Cache) memoryLocked() MemoryUsage {
	total := 0
	for key, e := range c.entries {
		total += entrySize(key, e)
	}
	return newMemoryUsage(total)
}

// removeLocked drops key from the entries and the access order together.
func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	c.order.remove(key)
}

func (c *Cache) cleanupLocked(now time.Time) ([]Event, int) {
	var events []Event
	var evicted []string

	for _, key := range c.order.keys() {
		if c.entries[key].ExpiredAt(now) {
			c.removeLocked(key)
			evicted = append(evicted, key)
			events = append(events, EvictionEvent{Key: key, Reason: EvictionTTL, Timestamp: now})
		}
	}

	if len(evicted) == 0 {
		return nil, 0
	}
	c.stats.evicted(len(evicted), EvictionTTL)
	events = append(events, CleanupEvent{EvictedCount: len(evicted), EvictedKeys: evicted, Timestamp: now})
	return events, len(evicted)
}

func (c *Cache) clearLocked(now time.Time) []Event {
	size := len(c.entries)
	if size == 0 {
		return nil
	}

	cleared := c.order.keys()
	c.entries = make(map[string]*Entry)
	c.order.reset()
	c.stats.evicted(size, EvictionManual)

	return []Event{ClearEvent{KeysCleared: size, ClearedKeys: cleared, Timestamp: now}}
}
