package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/arong/lmsengine/internal/ui/theme"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// RenderHeader renders a report header: the title on the left and the
// learner's points and streak on the right.
func RenderHeader(title string, points, streak int, width int) string {
	left := theme.Title.Render(title)

	right := theme.Points.Render(fmt.Sprintf("◆ %d pts", points)) +
		"   " +
		lipgloss.NewStyle().
			Foreground(theme.Accent).
			Render(fmt.Sprintf("★ %d day", streak))

	innerWidth := width - 4 // border and padding
	gap := innerWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return theme.Card.
		Width(width).
		Render(left + strings.Repeat(" ", gap) + right)
}

// RenderSection renders a titled block of lines.
func RenderSection(title string, lines []string, width int) string {
	var b strings.Builder
	b.WriteString(theme.Subtitle.Bold(true).Render(title))
	for _, l := range lines {
		b.WriteString("\n  ")
		b.WriteString(l)
	}
	if len(lines) == 0 {
		b.WriteString("\n  ")
		b.WriteString(theme.Hint.Render("none"))
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}
