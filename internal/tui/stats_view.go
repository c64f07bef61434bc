package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/cmdcache/internal/engine/cache"
)

const (
	maxOutputLines = 10
	labelWidth     = 14
)

// View renders the dashboard (Bubble Tea interface).
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("cmdcache watch: " + m.title))
	b.WriteString("\n\n")

	left := renderCounters(m.stats)
	right := renderWindow(m.stats.RollingWindow)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, BoxStyle.Render(left), " ", BoxStyle.Render(right)))
	b.WriteString("\n\n")

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Intervals (%s each)", cache.FormatDuration(m.stats.TimeBased.IntervalDuration))))
	b.WriteString("\n")
	if len(m.stats.TimeBased.Intervals) == 0 {
		b.WriteString(MutedStyle.Render("no activity yet"))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderLastOutput())
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("q: quit"))
	return b.String()
}

func renderCounters(s cache.Stats) string {
	rows := [][2]string{
		{"Entries", fmt.Sprintf("%d / %s", s.Size, s.Config.MaxKeysString())},
		{"Hits", fmt.Sprint(s.Hits)},
		{"Misses", fmt.Sprint(s.Misses)},
		{"Hit rate", hitRateStyle(s.HitRate).Render(fmt.Sprintf("%.2f%%", s.HitRate))},
		{"Evictions", fmt.Sprintf("%d (lru %d)", s.Evictions, s.LRUEvictions)},
		{"Memory", fmt.Sprintf("%.2f KB", s.Memory.KB)},
	}
	return renderRows(rows)
}

func renderWindow(w cache.WindowStats) string {
	var recent strings.Builder
	for _, op := range w.RecentOperations {
		if op.Type == cache.OperationHit {
			recent.WriteString(lipgloss.NewStyle().Foreground(ColorOK).Render("H"))
		} else {
			recent.WriteString(lipgloss.NewStyle().Foreground(ColorCritical).Render("M"))
		}
	}
	if recent.Len() == 0 {
		recent.WriteString(MutedStyle.Render("-"))
	}

	rows := [][2]string{
		{"Window", fmt.Sprintf("%d / %d ops", w.CurrentOperations, w.WindowSize)},
		{"Window rate", hitRateStyle(w.HitRate).Render(fmt.Sprintf("%.2f%%", w.HitRate))},
		{"Recent", recent.String()},
	}
	return renderRows(rows)
}

func renderRows(rows [][2]string) string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = LabelStyle.Render(fmt.Sprintf("%-*s", labelWidth, r[0])) + ValueStyle.Render(r[1])
	}
	return strings.Join(lines, "\n")
}

func (m StatsModel) renderLastOutput() string {
	if m.polls == 0 {
		return MutedStyle.Render("waiting for first poll...") + "\n"
	}

	source := "ran command"
	if m.lastCached {
		source = fmt.Sprintf("from cache, age %s, expires in %s",
			cache.FormatDuration(m.lastAge), cache.FormatDuration(m.lastExpiry))
	}
	header := fmt.Sprintf("Last output (%s at %s, %d/%d polls cached)",
		source, m.lastAt.Format(intervalLayout), m.cachedHits, m.polls)

	lines := strings.Split(strings.TrimRight(m.lastOutput, "\n"), "\n")
	if len(lines) > maxOutputLines {
		lines = append(lines[:maxOutputLines], MutedStyle.Render(fmt.Sprintf("... %d more lines", len(lines)-maxOutputLines)))
	}
	return TitleStyle.Render(header) + "\n" + strings.Join(lines, "\n") + "\n"
}
