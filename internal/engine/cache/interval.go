package cache

import (
	"time"
)

const (
	// MaxRetainedIntervals is how many closed intervals are kept (one hour at the default duration).
	MaxRetainedIntervals = 60

	// intervalsShown is how many intervals a time-based snapshot carries.
	intervalsShown = 5
)

// Interval is one statistics period. EndTime is zero while the interval is open.
type Interval struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Hits      uint64    `json:"hits"`
	Misses    uint64    `json:"misses"`

	// IsCurrent marks the still-open interval in snapshots.
	IsCurrent bool `json:"is_current,omitempty"`
}

// AggregateStats sums the retained intervals.
type AggregateStats struct {
	TotalHits     uint64        `json:"total_hits"`
	TotalMisses   uint64        `json:"total_misses"`
	HitRate       float64       `json:"hit_rate"`
	PeriodCovered time.Duration `json:"period_covered"`
}

// TimeBasedStats is a snapshot of interval statistics.
type TimeBasedStats struct {
	IntervalDuration time.Duration  `json:"interval_duration"`
	Intervals        []Interval     `json:"intervals"`
	Aggregate        AggregateStats `json:"aggregate"`
}

// intervalTracker accumulates hits and misses into fixed-duration intervals.
type intervalTracker struct {
	duration time.Duration
	current  Interval
	history  []Interval
}

func newIntervalTracker(duration time.Duration, now time.Time) *intervalTracker {
	return &intervalTracker{
		duration: duration,
		current:  Interval{StartTime: now},
		history:  make([]Interval, 0, MaxRetainedIntervals),
	}
}

func (t *intervalTracker) record(typ OperationType) {
	if typ == OperationHit {
		t.current.Hits++
	} else {
		t.current.Misses++
	}
}

// rotate closes the current interval once its duration has elapsed.
// It reports whether a rotation happened.
func (t *intervalTracker) rotate(now time.Time) bool {
	if now.Sub(t.current.StartTime) < t.duration {
		return false
	}

	closed := t.current
	closed.EndTime = now
	if len(t.history) == MaxRetainedIntervals {
		copy(t.history, t.history[1:])
		t.history = t.history[:MaxRetainedIntervals-1]
	}
	t.history = append(t.history, closed)

	t.current = Interval{StartTime: now}
	return true
}

func (t *intervalTracker) active() bool {
	return t.current.Hits > 0 || t.current.Misses > 0
}

// snapshot sums closed intervals plus the open one when it has activity.
func (t *intervalTracker) snapshot(now time.Time) TimeBasedStats {
	intervals := make([]Interval, len(t.history), len(t.history)+1)
	copy(intervals, t.history)
	if t.active() {
		open := t.current
		open.EndTime = now
		open.IsCurrent = true
		intervals = append(intervals, open)
	}

	var agg AggregateStats
	for _, iv := range intervals {
		agg.TotalHits += iv.Hits
		agg.TotalMisses += iv.Misses
	}
	agg.HitRate = hitRate(agg.TotalHits, agg.TotalMisses)
	if len(intervals) > 0 {
		agg.PeriodCovered = now.Sub(intervals[0].StartTime)
	}

	shown := intervals
	if len(shown) > intervalsShown {
		shown = shown[len(shown)-intervalsShown:]
	}

	return TimeBasedStats{
		IntervalDuration: t.duration,
		Intervals:        shown,
		Aggregate:        agg,
	}
}

// closed returns a copy of all retained closed intervals, oldest first.
func (t *intervalTracker) closed() []Interval {
	out := make([]Interval, len(t.history))
	copy(out, t.history)
	return out
}

func (t *intervalTracker) reset(now time.Time) {
	t.current = Interval{StartTime: now}
	t.history = t.history[:0]
}
