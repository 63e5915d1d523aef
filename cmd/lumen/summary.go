package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// renderSummary draws the post-build counters in a bordered box.
func renderSummary(moduleCount, unitCount, declCount, diagCount int) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	value := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	warn := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))

	rows := []struct {
		name  string
		count int
		style lipgloss.Style
	}{
		{"modules", moduleCount, value},
		{"units", unitCount, value},
		{"decls", declCount, value},
		{"diagnostics", diagCount, value},
	}
	if diagCount > 0 {
		rows[3].style = warn
	}

	width := 0
	for _, row := range rows {
		if w := runewidth.StringWidth(row.name); w > width {
			width = w
		}
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		padded := row.name + strings.Repeat(" ", width-runewidth.StringWidth(row.name))
		fmt.Fprintf(&b, "%s  %s", label.Render(padded), row.style.Render(fmt.Sprintf("%d", row.count)))
	}
	return border.Render(b.String()) + "\n"
}
