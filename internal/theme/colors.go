// Package theme is the console's color palette.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// Color palette - dark theme inspired by Catppuccin Mocha
var (
	ColorBase     = lipgloss.Color("#1e1e2e")
	ColorSurface0 = lipgloss.Color("#313244")
	ColorSurface1 = lipgloss.Color("#45475a")
	ColorSurface2 = lipgloss.Color("#585b70")
	ColorOverlay0 = lipgloss.Color("#6c7086")
	ColorText     = lipgloss.Color("#cdd6f4")
	ColorSubtext0 = lipgloss.Color("#a6adc8")
	ColorSubtext1 = lipgloss.Color("#bac2de")

	ColorRed      = lipgloss.Color("#f38ba8")
	ColorGreen    = lipgloss.Color("#a6e3a1")
	ColorYellow   = lipgloss.Color("#f9e2af")
	ColorBlue     = lipgloss.Color("#89b4fa")
	ColorMauve    = lipgloss.Color("#cba6f7")
	ColorTeal     = lipgloss.Color("#94e2d5")
	ColorPeach    = lipgloss.Color("#fab387")
	ColorLavender = lipgloss.Color("#b4befe")
)

// SeverityColor is the background of a notice strip.
func SeverityColor(sev notify.Severity) lipgloss.Color {
	switch sev {
	case notify.SeveritySuccess:
		return ColorGreen
	case notify.SeverityWarning:
		return ColorYellow
	case notify.SeverityError:
		return ColorRed
	default:
		return ColorBlue
	}
}

// StatusColor is the foreground for a record status; unknown statuses
// use the plain text color.
func StatusColor(status resource.Status) lipgloss.Color {
	switch status {
	case resource.StatusActive:
		return ColorGreen
	case resource.StatusInactive:
		return ColorOverlay0
	default:
		return ColorText
	}
}
