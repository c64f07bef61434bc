package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/cmdcache/internal/engine/cache"
)

const (
	defaultWidth   = 100
	defaultHeight  = 30
	minTableHeight = 3
	intervalLayout = "15:04:05"

	// minRefresh bounds how often the dashboard polls the cache.
	minRefresh = 100 * time.Millisecond
)

// StatsSource is what the dashboard reads from; *cache.Cache satisfies it.
type StatsSource interface {
	Stats() cache.Stats
}

// OutputMsg delivers the result of one poll to the dashboard.
// Age and ExpiresIn describe the cache entry the output came from.
type OutputMsg struct {
	Output    string
	Cached    bool
	At        time.Time
	Age       time.Duration
	ExpiresIn time.Duration
}

// refreshMsg triggers a stats re-read.
type refreshMsg time.Time

// StatsModel is the Bubble Tea model for the live cache dashboard.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type StatsModel struct {
	source  StatsSource
	title   string
	refresh time.Duration

	stats      cache.Stats
	lastOutput string
	lastCached bool
	lastAt     time.Time
	lastAge    time.Duration
	lastExpiry time.Duration
	polls      int
	cachedHits int

	table  table.Model
	width  int
	height int

	quitting bool
}

// NewStatsModel creates a dashboard for source. refresh is how often stats
// are re-read.
func NewStatsModel(source StatsSource, title string, refresh time.Duration) StatsModel {
	if refresh < minRefresh {
		refresh = minRefresh
	}
	m := StatsModel{
		source:  source,
		title:   title,
		refresh: refresh,
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.stats = source.Stats()
	m.table = m.buildIntervalTable()
	return m
}

// Init starts the refresh ticker (Bubble Tea interface).
func (m StatsModel) Init() tea.Cmd {
	return m.tick()
}

func (m StatsModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.buildIntervalTable()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case refreshMsg:
		m.stats = m.source.Stats()
		m.table = m.buildIntervalTable()
		return m, m.tick()

	case OutputMsg:
		m.polls++
		if msg.Cached {
			m.cachedHits++
		}
		m.lastOutput = msg.Output
		m.lastCached = msg.Cached
		m.lastAt = msg.At
		m.lastAge = msg.Age
		m.lastExpiry = msg.ExpiresIn
		m.stats = m.source.Stats()
		m.table = m.buildIntervalTable()
		return m, nil
	}
	return m, nil
}

// buildIntervalTable lists the recent statistics intervals, newest last.
func (m StatsModel) buildIntervalTable() table.Model {
	columns := []table.Column{
		{Title: "Start", Width: 10},    //nolint:mnd // Column width.
		{Title: "End", Width: 10},      //nolint:mnd // Column width.
		{Title: "Hits", Width: 8},      //nolint:mnd // Column width.
		{Title: "Misses", Width: 8},    //nolint:mnd // Column width.
		{Title: "Hit rate", Width: 10}, //nolint:mnd // Column width.
		{Title: "", Width: 8},          //nolint:mnd // Column width.
	}

	intervals := m.stats.TimeBased.Intervals
	rows := make([]table.Row, len(intervals))
	for i, iv := range intervals {
		marker := ""
		if iv.IsCurrent {
			marker = "current"
		}
		rate := cache.Counters{Hits: iv.Hits, Misses: iv.Misses}.HitRate()
		rows[i] = table.Row{
			iv.StartTime.Format(intervalLayout),
			iv.EndTime.Format(intervalLayout),
			fmt.Sprint(iv.Hits),
			fmt.Sprint(iv.Misses),
			fmt.Sprintf("%.2f%%", rate),
			marker,
		}
	}

	height := len(rows) + 1
	if height < minTableHeight {
		height = minTableHeight
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)

	return t
}
