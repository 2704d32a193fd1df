package tui

import (
	"fmt"
	"strings"

	"couchmatch/models"

	"github.com/charmbracelet/lipgloss"
)

// CardHeight is the number of terminal rows a rendered card takes
const CardHeight = 5

const defaultWidth = 80

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#30363d")).
			Padding(0, 1)

	nameStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e6edf3"))
	discountStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3fb950"))
	matchStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
	priceStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#d29922"))
)

// Card renders a sofa as a bordered product card CardHeight rows tall
func Card(sofa models.Sofa, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	// Border and padding take four columns
	inner := max(width-4, 10)

	title := nameStyle.Render(truncate(sofa.Name, inner/2)) + "  " + discountStyle.Render(sofa.DisplayDiscount())
	if pct, ok := sofa.MatchPercentage(); ok {
		title += "  " + matchStyle.Render(fmt.Sprintf("%d%% Match", pct))
	}

	description := mutedStyle.Render(truncate(oneLine(sofa.DisplayDescription()), inner))
	price := priceStyle.Render(sofa.DisplayPrice()) + mutedStyle.Render("  Delivery: "+models.DeliveryEstimate)

	return cardStyle.Width(inner + 2).Render(strings.Join([]string{title, description, price}, "\n"))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
