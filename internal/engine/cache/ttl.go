package cache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// hoursPerDay is used for duration formatting calculations.
	hoursPerDay = 24
)

// ErrInvalidTTL is returned by ParseTTL for unusable input.
var ErrInvalidTTL = errors.New("TTL must be a positive duration")

// ParseTTL parses a TTL given either as integer milliseconds ("15000") or as a
// duration string ("15s", "1m30s").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if ms, err := strconv.Atoi(s); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("%w: got %dms", ErrInvalidTTL, ms)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: got %s", ErrInvalidTTL, d)
	}
	return d, nil
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "250ms", "30s", "5m", "2h30m", "3d2h".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60 //nolint:mnd // Seconds per minute.
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}
