package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"imgseek/internal/controller"
)

// StatusBarModel manages the bottom status bar
type StatusBarModel struct {
	ServerURL string
	Phase     controller.Phase
	Spinner   string // current spinner frame while loading
	Selected  string
	SizeText  string
	Results   int
	RequestID uint64
	Width     int
	Styles    Styles
}

// NewStatusBarModel creates a new status bar
func NewStatusBarModel(styles Styles) StatusBarModel {
	return StatusBarModel{
		Styles: styles,
	}
}

// View renders the status bar
func (s StatusBarModel) View() string {
	var parts []string

	switch s.Phase {
	case controller.PhaseLoading:
		parts = append(parts, s.Styles.StatusBusy.Render(strings.TrimSpace(s.Spinner+" searching")))
	case controller.PhaseError:
		parts = append(parts, s.Styles.StatusError.Render("x failed"))
	case controller.PhaseResults:
		parts = append(parts, s.Styles.StatusReady.Render(fmt.Sprintf("* %d results", s.Results)))
	case controller.PhaseSelected:
		parts = append(parts, s.Styles.StatusReady.Render("* ready"))
	default:
		parts = append(parts, s.Styles.Muted.Render("no image"))
	}

	if s.Selected != "" {
		name := ansi.Truncate(s.Selected, 30, "...")
		parts = append(parts, s.Styles.Accent.Render(name))
		if s.SizeText != "" {
			parts = append(parts, s.Styles.Muted.Render(s.SizeText))
		}
	}

	if s.RequestID > 0 {
		parts = append(parts, s.Styles.Muted.Render(fmt.Sprintf("#%d", s.RequestID)))
	}

	if s.ServerURL != "" {
		url := strings.TrimPrefix(s.ServerURL, "http://")
		url = strings.TrimPrefix(url, "https://")
		url = strings.TrimSuffix(url, "/")
		url = ansi.Truncate(url, 25, "...")
		parts = append(parts, s.Styles.Muted.Render(url))
	}

	content := strings.Join(parts, "  |  ")
	return s.Styles.StatusBar.Width(s.Width).Render(content)
}
