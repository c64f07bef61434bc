package cache

import (
	"time"
)

// Entry represents a single cached value with TTL metadata.
// An Entry is owned by the Cache and replaced wholesale when its key is set again.
type Entry struct {
	// Value is the cached value as handed to Set.
	Value any

	// CreatedAt is the time the entry was stored.
	CreatedAt time.Time

	// ExpiresAt is the absolute expiry time (CreatedAt + ttl).
	ExpiresAt time.Time
}

// newEntry creates an entry stored at now that lives for ttl.
func newEntry(value any, now time.Time, ttl time.Duration) *Entry {
	return &Entry{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// ExpiredAt reports whether the entry is expired at the given instant.
// An entry is still served at exactly ExpiresAt.
func (e *Entry) ExpiredAt(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Age returns how long the entry has existed at now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// TimeUntilExpiration returns the remaining lifetime at now.
// Returns 0 if already expired.
func (e *Entry) TimeUntilExpiration(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
