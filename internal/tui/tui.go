// Package tui is the interactive terminal surface of the console.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/notify"
)

// Run starts the full-screen UI and blocks until the operator quits.
func Run(c *console.Console, notices *notify.Center, opts Options) error {
	m := NewApp(c, notices, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
