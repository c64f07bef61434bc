package cache

import (
	"time"
)

// Counters are the lifetime counters of one Cache. They never decrease.
type Counters struct {
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Evictions    uint64 `json:"evictions"`
	LRUEvictions uint64 `json:"lru_evictions"`
}

// HitRate returns the lifetime hit rate as a percentage rounded to two decimals.
func (c Counters) HitRate() float64 {
	return hitRate(c.Hits, c.Misses)
}

// Stats is a read-only snapshot of cache state for diagnostics.
type Stats struct {
	Counters

	HitRate       float64        `json:"hit_rate"`
	Size          int            `json:"size"`
	Memory        MemoryUsage    `json:"memory"`
	RollingWindow WindowStats    `json:"rolling_window"`
	TimeBased     TimeBasedStats `json:"time_based"`
	Config        Config         `json:"config"`
}

// statsEngine owns the cumulative counters, the rolling window and the intervals.
type statsEngine struct {
	counters  Counters
	window    *rollingWindow
	intervals *intervalTracker
}

func newStatsEngine(cfg Config, now time.Time) *statsEngine {
	return &statsEngine{
		window:    newRollingWindow(cfg.WindowSize),
		intervals: newIntervalTracker(cfg.IntervalDuration, now),
	}
}

func (s *statsEngine) hit(now time.Time) {
	s.counters.Hits++
	s.window.record(OperationHit, now)
	s.intervals.record(OperationHit)
}

func (s *statsEngine) miss(now time.Time) {
	s.counters.Misses++
	s.window.record(OperationMiss, now)
	s.intervals.record(OperationMiss)
}

func (s *statsEngine) evicted(n int, reason EvictionReason) {
	s.counters.Evictions += uint64(n)
	if reason == EvictionLRU {
		s.counters.LRUEvictions += uint64(n)
	}
}

func (s *statsEngine) reset(now time.Time) {
	s.counters = Counters{}
	s.window.reset()
	s.intervals.reset(now)
}
