package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventKind identifies the kind of a cache event.
type EventKind string

// Event kinds published by the Cache.
const (
	EventSet      EventKind = "set"
	EventGet      EventKind = "get"
	EventEviction EventKind = "eviction"
	EventClear    EventKind = "clear"
	EventCleanup  EventKind = "cleanup"
)

// EventKinds lists every kind in a stable order.
//
//nolint:gochecknoglobals // Read-only lookup table.
var EventKinds = []EventKind{EventSet, EventGet, EventEviction, EventClear, EventCleanup}

// EvictionReason explains why an entry left the cache.
type EvictionReason string

// Eviction reasons.
const (
	EvictionTTL    EvictionReason = "ttl"
	EvictionLRU    EvictionReason = "lru"
	EvictionManual EvictionReason = "manual"
)

// Event is implemented by every event payload.
type Event interface {
	Kind() EventKind
}

// SetEvent is published after a value is stored.
type SetEvent struct {
	Key       string
	ValueSize int
	TTL       time.Duration
	Timestamp time.Time
}

// GetEvent is published for every Get, hit or miss.
type GetEvent struct {
	Key       string
	Hit       bool
	Timestamp time.Time
}

// EvictionEvent is published for every entry removed by TTL, LRU or Delete.
type EvictionEvent struct {
	Key       string
	Reason    EvictionReason
	Timestamp time.Time
}

// ClearEvent is published when Clear removes at least one entry.
type ClearEvent struct {
	KeysCleared int
	ClearedKeys []string
	Timestamp   time.Time
}

// CleanupEvent is published when a sweep removes at least one expired entry.
type CleanupEvent struct {
	EvictedCount int
	EvictedKeys  []string
	Timestamp    time.Time
}

// Kind implements Event.
func (SetEvent) Kind() EventKind { return EventSet }

// Kind implements Event.
func (GetEvent) Kind() EventKind { return EventGet }

// Kind implements Event.
func (EvictionEvent) Kind() EventKind { return EventEviction }

// Kind implements Event.
func (ClearEvent) Kind() EventKind { return EventClear }

// Kind implements Event.
func (CleanupEvent) Kind() EventKind { return EventCleanup }

// Handler receives events of the kind it was subscribed to.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// notifier is a synchronous publish/subscribe registry keyed by event kind.
// A panicking handler is recovered and logged; the remaining handlers still run.
type notifier struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[EventKind][]subscription
	logger zerolog.Logger
}

func newNotifier(logger zerolog.Logger) *notifier {
	return &notifier{
		subs:   make(map[EventKind][]subscription),
		logger: logger,
	}
}

// subscribe registers fn for kind and returns a func that removes it.
// The returned func is safe to call more than once.
func (n *notifier) subscribe(kind EventKind, fn Handler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.subs[kind] = append(n.subs[kind], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { n.unsubscribe(kind, id) })
	}
}

func (n *notifier) unsubscribe(kind EventKind, id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs := n.subs[kind]
	for i, s := range subs {
		if s.id == id {
			// Copy so that a publish iterating the old slice is unaffected.
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			n.subs[kind] = append(next, subs[i+1:]...)
			return
		}
	}
}

func (n *notifier) count(kind EventKind) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[kind])
}

func (n *notifier) publish(events ...Event) {
	for _, ev := range events {
		n.mu.RLock()
		subs := n.subs[ev.Kind()]
		n.mu.RUnlock()

		for _, s := range subs {
			n.deliver(s.fn, ev)
		}
	}
}

func (n *notifier) deliver(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error().
				Str("event", string(ev.Kind())).
				Str("panic", fmt.Sprint(r)).
				Msg("cache event handler panicked")
		}
	}()
	fn(ev)
}

// Subscribe registers h for events of kind and returns a func that removes it.
// Handlers run synchronously before the triggering operation returns.
func (c *Cache) Subscribe(kind EventKind, h Handler) (unsubscribe func()) {
	return c.events.subscribe(kind, h)
}

// Subscribers returns the number of handlers registered for kind.
func (c *Cache) Subscribers(kind EventKind) int {
	return c.events.count(kind)
}

// OnSet registers a typed handler for set events.
func (c *Cache) OnSet(fn func(SetEvent)) func() {
	return c.Subscribe(EventSet, func(ev Event) { fn(ev.(SetEvent)) })
}

// OnGet registers a typed handler for get events.
func (c *Cache) OnGet(fn func(GetEvent)) func() {
	return c.Subscribe(EventGet, func(ev Event) { fn(ev.(GetEvent)) })
}

// OnEviction registers a typed handler for eviction events.
func (c *Cache) OnEviction(fn func(EvictionEvent)) func() {
	return c.Subscribe(EventEviction, func(ev Event) { fn(ev.(EvictionEvent)) })
}

// OnClear registers a typed handler for clear events.
func (c *Cache) OnClear(fn func(ClearEvent)) func() {
	return c.Subscribe(EventClear, func(ev Event) { fn(ev.(ClearEvent)) })
}

// OnCleanup registers a typed handler for cleanup events.
func (c *Cache) OnCleanup(fn func(CleanupEvent)) func() {
	return c.Subscribe(EventCleanup, func(ev Event) { fn(ev.(CleanupEvent)) })
}
