package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive client and blocks until the user quits.
func Run(config ModelConfig) error {
	model := NewModel(config)
	defer model.bridge.Close()
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
