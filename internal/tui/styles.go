package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by dashboard views.
//
//nolint:gochecknoglobals // Styles are immutable package-level values.
var (
	ColorHeader    = lipgloss.Color("39")
	ColorLabel     = lipgloss.Color("245")
	ColorValue     = lipgloss.Color("252")
	ColorMuted     = lipgloss.Color("240")
	ColorHighlight = lipgloss.Color("212")
	ColorOK        = lipgloss.Color("42")
	ColorWarning   = lipgloss.Color("214")
	ColorCritical  = lipgloss.Color("196")

	TitleStyle         = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	LabelStyle         = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle         = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	MutedStyle         = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	TableHeaderStyle   = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true).Padding(0, 1)
	TableSelectedStyle = lipgloss.NewStyle().Foreground(ColorHighlight)
	BoxStyle           = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorMuted).Padding(0, 1)
)

// Hit rate bands used to colour the rate figures.
const (
	goodHitRate = 80.0
	fairHitRate = 50.0
)

// hitRateStyle picks a colour for a hit-rate percentage.
func hitRateStyle(rate float64) lipgloss.Style {
	switch {
	case rate >= goodHitRate:
		return lipgloss.NewStyle().Foreground(ColorOK).Bold(true)
	case rate >= fairHitRate:
		return lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(ColorCritical).Bold(true)
	}
}
