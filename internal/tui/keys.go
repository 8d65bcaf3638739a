package tui

import "github.com/charmbracelet/bubbles/key"

// ViewKeyMap defines the global key bindings for navigating views.
type ViewKeyMap struct {
	Quit      key.Binding
	Tab       key.Binding
	ShiftTab  key.Binding
	Agents    key.Binding
	Tools     key.Binding
	Workflows key.Binding
	MAS       key.Binding
	System    key.Binding
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Escape    key.Binding
	Search    key.Binding
	CycleType key.Binding
	New       key.Binding
	Reload    key.Binding
	Save      key.Binding
	Toggle    key.Binding
	Left      key.Binding
	Right     key.Binding
}

// DefaultKeyMap returns the default key map for the application.
func DefaultKeyMap() ViewKeyMap {
	return ViewKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev"),
		),
		Agents: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "agents"),
		),
		Tools: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "tools"),
		),
		Workflows: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "workflows"),
		),
		MAS: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "mas"),
		),
		System: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "system"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("k/up", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("j/down", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		CycleType: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "type filter"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "prev option"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next option"),
		),
	}
}
