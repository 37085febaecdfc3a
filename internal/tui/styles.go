package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	riskHigh     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	riskMedium   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	riskLow      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

func riskStyle(level string) lipgloss.Style {
	switch level {
	case "HIGH":
		return riskHigh
	case "MEDIUM":
		return riskMedium
	case "LOW":
		return riskLow
	default:
		return detailStyle
	}
}
