package cache

import (
	"sync"
	"time"
)

// maxRecentEvents is how many operations a Collector remembers.
const maxRecentEvents = 20

// RecentEvent is one operation observed by a Collector.
type RecentEvent struct {
	Type         string
	Key          string
	Reason       EvictionReason
	EvictedCount int
	KeysCleared  int
	Timestamp    time.Time
}

// OperationCounts are totals observed through events.
type OperationCounts struct {
	Sets      int
	Gets      int
	Hits      int
	Misses    int
	Evictions map[EvictionReason]int
	Cleanups  int
	Clears    int
}

// CollectorSnapshot is a copy of what a Collector has seen.
type CollectorSnapshot struct {
	Operations OperationCounts
	Recent     []RecentEvent
}

// Collector aggregates cache activity purely from events, independently of the
// cache's own statistics.
type Collector struct {
	mu     sync.Mutex
	ops    OperationCounts
	recent []RecentEvent
	unsubs []func()
}

// NewCollector subscribes a Collector to every event kind of c.
func NewCollector(c *Cache) *Collector {
	col := &Collector{}
	col.resetLocked()

	col.unsubs = []func(){
		c.OnSet(col.onSet),
		c.OnGet(col.onGet),
		c.OnEviction(col.onEviction),
		c.OnCleanup(col.onCleanup),
		c.OnClear(col.onClear),
	}
	return col
}

// Snapshot returns a copy of the collected counts and recent operations.
func (col *Collector) Snapshot() CollectorSnapshot {
	col.mu.Lock()
	defer col.mu.Unlock()

	ops := col.ops
	ops.Evictions = make(map[EvictionReason]int, len(col.ops.Evictions))
	for k, v := range col.ops.Evictions {
		ops.Evictions[k] = v
	}
	recent := make([]RecentEvent, len(col.recent))
	copy(recent, col.recent)

	return CollectorSnapshot{Operations: ops, Recent: recent}
}

// Reset zeroes all counts.
func (col *Collector) Reset() {
	col.mu.Lock()
	defer col.mu.Unlock()
	col.resetLocked()
}

// Close unsubscribes the collector from the cache.
func (col *Collector) Close() {
	for _, unsub := range col.unsubs {
		unsub()
	}
}

func (col *Collector) resetLocked() {
	col.ops = OperationCounts{
		Evictions: map[EvictionReason]int{EvictionTTL: 0, EvictionLRU: 0, EvictionManual: 0},
	}
	col.recent = nil
}

func (col *Collector) onSet(ev SetEvent) {
	col.mu.Lock()
	defer col.mu.Unlock()
	col.ops.Sets++
	col.pushLocked(RecentEvent{Type: string(EventSet), Key: ev.Key, Timestamp: ev.Timestamp})
}

func (col *Collector) onGet(ev GetEvent) {
	col.mu.Lock()
	defer col.mu.Unlock()
	col.ops.Gets++
	typ := OperationMiss
	if ev.Hit {
		col.ops.Hits++
		typ = OperationHit
	} else {
		col.ops.Misses++
	}
	col.pushLocked(RecentEvent{Type: string(typ), Key: ev.Key, Timestamp: ev.Timestamp})
}

func (col *Collector) onEviction(ev EvictionEvent) {
	col.mu.Lock()
	defer col.mu.Unlock()
	col.ops.Evictions[ev.Reason]++
	col.pushLocked(RecentEvent{Type: string(EventEviction), Key: ev.Key, Reason: ev.Reason, Timestamp: ev.Timestamp})
}

func (col *Collector) onCleanup(ev CleanupEvent) {
	col.mu.Lock()
	defer col.mu.Unlock()
	col.ops.Cleanups++
	col.pushLocked(RecentEvent{Type: string(EventCleanup), EvictedCount: ev.EvictedCount, Timestamp: ev.Timestamp})
}

func (col *Collector) onClear(ev ClearEvent) {
	col.mu.Lock()
	defer col.mu.Unlock()
	col.ops.Clears++
	col.pushLocked(RecentEvent{Type: string(EventClear), KeysCleared: ev.KeysCleared, Timestamp: ev.Timestamp})
}

func (col *Collector) pushLocked(ev RecentEvent) {
	col.recent = append(col.recent, ev)
	if len(col.recent) > maxRecentEvents {
		col.recent = col.recent[len(col.recent)-maxRecentEvents:]
	}
}
