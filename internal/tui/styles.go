package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all the TUI styling definitions
type Styles struct {
	// Header
	Title     lipgloss.Style
	ServerURL lipgloss.Style

	// File picker
	InputStyle  lipgloss.Style
	WhiteCursor lipgloss.Style

	// Alerts
	Alert lipgloss.Style

	// Panels
	PanelTitle lipgloss.Style
	Panel      lipgloss.Style
	Divider    lipgloss.Style

	// Results
	Rank        lipgloss.Style
	Filename    lipgloss.Style
	SimilarHigh lipgloss.Style // >= 80%
	SimilarMid  lipgloss.Style // 50-80%
	SimilarLow  lipgloss.Style // < 50%
	EmptyTitle  lipgloss.Style
	EmptyHint   lipgloss.Style

	// Status bar
	StatusBar   lipgloss.Style
	StatusBusy  lipgloss.Style
	StatusReady lipgloss.Style
	StatusError lipgloss.Style

	// General
	Muted  lipgloss.Style
	Bold   lipgloss.Style
	Accent lipgloss.Style
}

// NewStyles creates the style set using the given renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2),
		ServerURL: r.NewStyle().
			Foreground(lipgloss.Color("245")).
			PaddingLeft(1),

		InputStyle: r.NewStyle().
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("238")),
		WhiteCursor: r.NewStyle().
			Foreground(lipgloss.Color("15")),

		Alert: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		PanelTitle: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213")).
			MarginBottom(1),
		Panel: r.NewStyle().
			Padding(0, 1),
		Divider: r.NewStyle().
			Foreground(lipgloss.Color("238")),

		Rank: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		Filename: r.NewStyle().
			Foreground(lipgloss.Color("75")).
			Bold(true),
		SimilarHigh: r.NewStyle().
			Foreground(lipgloss.Color("76")), // green
		SimilarMid: r.NewStyle().
			Foreground(lipgloss.Color("214")), // orange
		SimilarLow: r.NewStyle().
			Foreground(lipgloss.Color("196")), // red
		EmptyTitle: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")),
		EmptyHint: r.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),

		StatusBar: r.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
		StatusBusy: r.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		StatusReady: r.NewStyle().
			Foreground(lipgloss.Color("76")).
			Bold(true),
		StatusError: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		Muted: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		Bold: r.NewStyle().
			Bold(true),
		Accent: r.NewStyle().
			Foreground(lipgloss.Color("213")),
	}
}

// similarityStyle colors a similarity percentage.
func (s Styles) similarityStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= 80:
		return s.SimilarHigh
	case pct >= 50:
		return s.SimilarMid
	default:
		return s.SimilarLow
	}
}
