package cli

import (
	"github.com/charmbracelet/lipgloss"

	"gastos/internal/aggregate"
	"gastos/internal/core"
)

var (
	successColor = lipgloss.Color("#4ECDC4")
	warningColor = lipgloss.Color("#FFE66D")
	errorColor   = lipgloss.Color("#FF6B6B")
	subtleColor  = lipgloss.Color("#666666")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	subtleStyle  = lipgloss.NewStyle().Foreground(subtleColor)
)

func tierStyle(t aggregate.RiskTier) lipgloss.Style {
	switch t {
	case aggregate.TierCritical:
		return errorStyle
	case aggregate.TierWarning:
		return warningStyle
	default:
		return successStyle
	}
}

// categoryLabel marks categories outside the suggested set for kind.
func categoryLabel(c core.Category, kind core.RecordKind) string {
	if c.IsKnown(kind) {
		return c.String()
	}
	return c.String() + " " + subtleStyle.Render("custom")
}
