package tui

import "github.com/charmbracelet/lipgloss"

// Color palette, grounded in altuslabsxyz-devnet-builder/internal/tui/styles.go.
var (
	colorRunning     = lipgloss.Color("#22c55e") // green
	colorTerminating = lipgloss.Color("#eab308") // yellow
	colorStopped     = lipgloss.Color("#6b7280") // gray
	colorFinished    = lipgloss.Color("#06b6d4") // cyan
	colorStarting    = lipgloss.Color("#a855f7") // purple
	colorError       = lipgloss.Color("#ef4444") // red
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06b6d4"))
	helpStyle  = lipgloss.NewStyle().Foreground(colorStopped)
	detailBox  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFinished).
			Padding(0, 1)
)

func statusColor(label string) lipgloss.Color {
	switch label {
	case "Running":
		return colorRunning
	case "Starting":
		return colorStarting
	case "Terminating":
		return colorTerminating
	case "Finished":
		return colorFinished
	case "Stopped", "Not launched":
		return colorStopped
	default:
		return colorError
	}
}
