package viewer

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/driftlens/pkg/compare"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	amber      = lipgloss.Color("#F6C177")
	alertRed   = lipgloss.Color("#EB6F92")
	mutedGray  = lipgloss.Color("#6B7280")
	darkBg     = lipgloss.Color("#1F2937")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(salmonPink)

	tabStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(darkBg).
			Background(mintGreen)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedGray)
)

func severityStyle(s compare.Severity) lipgloss.Style {
	switch s {
	case compare.SeverityCritical:
		return lipgloss.NewStyle().Bold(true).Foreground(alertRed)
	case compare.SeverityHigh:
		return lipgloss.NewStyle().Bold(true).Foreground(amber)
	case compare.SeverityMedium:
		return lipgloss.NewStyle().Foreground(salmonPink)
	default:
		return mutedStyle
	}
}
