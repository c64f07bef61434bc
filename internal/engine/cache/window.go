package cache

import (
	"math"
	"time"
)

// recentOperationsShown is how many operations a window snapshot carries.
const recentOperationsShown = 10

// percentMultiplier converts a ratio to a percentage (0-100).
const percentMultiplier = 100

// OperationType is the outcome of a lookup.
type OperationType string

// Lookup outcomes recorded in the rolling window.
const (
	OperationHit  OperationType = "hit"
	OperationMiss OperationType = "miss"
)

// Operation is one recorded lookup outcome.
type Operation struct {
	Type      OperationType `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
}

// WindowStats is a snapshot of the rolling window.
type WindowStats struct {
	WindowSize        int         `json:"window_size"`
	CurrentOperations int         `json:"current_operations"`
	Hits              int         `json:"hits"`
	Misses            int         `json:"misses"`
	HitRate           float64     `json:"hit_rate"`
	RecentOperations  []Operation `json:"recent_operations"`
}

// rollingWindow keeps the last size lookup outcomes in a ring buffer.
// The buffer grows on demand until it holds size operations; from then on
// the oldest slot is overwritten. hits and misses always match the buffered
// operations.
type rollingWindow struct {
	size   int
	ops    []Operation
	start  int
	count  int
	hits   int
	misses int
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{size: size}
}

// record appends an outcome, dropping the oldest one when the window is full.
func (w *rollingWindow) record(typ OperationType, now time.Time) {
	op := Operation{Type: typ, Timestamp: now}
	if w.count == w.size {
		w.forget(w.ops[w.start].Type)
		w.ops[w.start] = op
		w.start = (w.start + 1) % w.size
	} else {
		// start stays 0 until the buffer is full.
		w.ops = append(w.ops, op)
		w.count++
	}

	if typ == OperationHit {
		w.hits++
	} else {
		w.misses++
	}
}

func (w *rollingWindow) forget(typ OperationType) {
	if typ == OperationHit {
		w.hits--
	} else {
		w.misses--
	}
}

func (w *rollingWindow) hitRate() float64 {
	return hitRate(uint64(w.hits), uint64(w.misses))
}

// recent returns up to n of the newest operations, oldest first.
func (w *rollingWindow) recent(n int) []Operation {
	if n > w.count {
		n = w.count
	}
	out := make([]Operation, 0, n)
	for i := w.count - n; i < w.count; i++ {
		out = append(out, w.ops[(w.start+i)%len(w.ops)])
	}
	return out
}

func (w *rollingWindow) snapshot() WindowStats {
	return WindowStats{
		WindowSize:        w.size,
		CurrentOperations: w.count,
		Hits:              w.hits,
		Misses:            w.misses,
		HitRate:           w.hitRate(),
		RecentOperations:  w.recent(recentOperationsShown),
	}
}

func (w *rollingWindow) reset() {
	w.ops = nil
	w.start, w.count, w.hits, w.misses = 0, 0, 0, 0
}

// hitRate returns hits/(hits+misses) as a percentage rounded to two decimals,
// or 0 when nothing was recorded.
func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	pct := float64(hits) / float64(total) * percentMultiplier
	return math.Round(pct*percentMultiplier) / percentMultiplier
}
