package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/cmdcache/internal/engine/cache"
)

const (
	statsTitle     = "CACHE STATISTICS"
	statsUnderline = "================"
	intervalLayout = "15:04:05"
)

// renderStats writes a human-readable summary of s to w.
func renderStats(w io.Writer, s cache.Stats) error {
	p := message.NewPrinter(language.English)
	titleStyle := lipgloss.NewStyle().Bold(true)
	labelStyle := lipgloss.NewStyle().Faint(true)

	line := func(label, format string, args ...any) error {
		_, err := p.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", label)), p.Sprintf(format, args...))
		return err
	}

	if _, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render(statsTitle), statsUnderline); err != nil {
		return err
	}

	rows := []struct {
		label  string
		format string
		args   []any
	}{
		{"Entries:", "%d (max %s)", []any{s.Size, s.Config.MaxKeysString()}},
		{"Hits / misses:", "%d / %d", []any{s.Hits, s.Misses}},
		{"Hit rate:", "%.2f%%", []any{s.HitRate}},
		{"Evictions:", "%d (lru %d)", []any{s.Evictions, s.LRUEvictions}},
		{"Memory:", "%d bytes (%.2f KB)", []any{s.Memory.Bytes, s.Memory.KB}},
		{"Window:", "%d/%d ops, %.2f%% hit rate", []any{
			s.RollingWindow.CurrentOperations, s.RollingWindow.WindowSize, s.RollingWindow.HitRate,
		}},
		{"Last intervals:", "%d of %s, %.2f%% hit rate", []any{
			len(s.TimeBased.Intervals),
			cache.FormatDuration(s.TimeBased.IntervalDuration),
			s.TimeBased.Aggregate.HitRate,
		}},
	}
	for _, r := range rows {
		if err := line(r.label, r.format, r.args...); err != nil {
			return err
		}
	}

	for _, iv := range s.TimeBased.Intervals {
		marker := ""
		if iv.IsCurrent {
			marker = " (current)"
		}
		if _, err := p.Fprintf(w, "  %s-%s  hits %d  misses %d%s\n",
			iv.StartTime.Format(intervalLayout), iv.EndTime.Format(intervalLayout),
			iv.Hits, iv.Misses, marker); err != nil {
			return err
		}
	}
	return nil
}
