package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
	"github.com/oxyadmin/oxyadmin/internal/theme"
)

// Navigation tab styles
var (
	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBase).
			Background(theme.ColorMauve).
			Padding(0, 2)

	InactiveTabStyle = lipgloss.NewStyle().
				Foreground(theme.ColorSubtext0).
				Background(theme.ColorSurface0).
				Padding(0, 2)
)

// Status bar
var (
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(theme.ColorSubtext0).
			Background(theme.ColorSurface0).
			Padding(0, 1)

	StatusKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorLavender).
			Background(theme.ColorSurface0)

	StatusValueStyle = lipgloss.NewStyle().
				Foreground(theme.ColorSubtext0).
				Background(theme.ColorSurface0)
)

// Card/panel styles
var (
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorSurface2).
			Padding(1, 2)

	FocusedCardStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(theme.ColorMauve).
				Padding(1, 2)
)

// Table styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorMauve)

	TableRowStyle = lipgloss.NewStyle().
			Foreground(theme.ColorText)

	TableSelectedRowStyle = lipgloss.NewStyle().
				Foreground(theme.ColorBase).
				Background(theme.ColorMauve).
				Bold(true)
)

// Detail view styles
var (
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorLavender)

	DetailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorMauve).
				Width(20)

	DetailValueStyle = lipgloss.NewStyle().
				Foreground(theme.ColorText)

	DetailContentStyle = lipgloss.NewStyle().
				Foreground(theme.ColorSubtext1)
)

// Badge/tag styles
var (
	BadgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(theme.ColorBase).
			Background(theme.ColorMauve)

	DemoBadgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(theme.ColorBase).
			Background(theme.ColorPeach)
)

// Misc
var (
	DimStyle = lipgloss.NewStyle().
			Foreground(theme.ColorOverlay0)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Bold(true)

	EmptyStateStyle = lipgloss.NewStyle().
			Foreground(theme.ColorOverlay0).
			Italic(true)

	HelpTextStyle = lipgloss.NewStyle().
			Foreground(theme.ColorSubtext0)

	CursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorMauve)
)

// NoticeStyle colors a notice strip by severity.
func NoticeStyle(sev notify.Severity) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBase).Padding(0, 1).Background(theme.SeverityColor(sev))
}

// StyledStatus renders a record status.
func StyledStatus(status string) string {
	return lipgloss.NewStyle().Foreground(theme.StatusColor(resource.Status(status))).Render(status)
}
