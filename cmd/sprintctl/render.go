package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
)

const barWidth = 30

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	leaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// renderRanking draws one line per option: rank, name, a bar scaled to the
// display fraction and the score to one decimal place.
func renderRanking(title string, rows []decision.Standing) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	nameWidth := 0
	for _, r := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.Name))
	}

	for _, r := range rows {
		filled := int(r.Fraction*barWidth + 0.5)
		filled = min(max(filled, 0), barWidth)
		bar := barStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", barWidth-filled))

		name := nameStyle.Width(nameWidth).Render(r.Name)
		if r.Rank == 1 {
			name = leaderStyle.Width(nameWidth).Render(r.Name)
		}
		fmt.Fprintf(&b, "%2d. %s  %s  %.1f\n", r.Rank, name, bar, r.Score)
	}
	return b.String()
}
