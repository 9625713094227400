package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/arong/lmsengine/internal/progression"
	"github.com/arong/lmsengine/internal/status"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Warning   = lipgloss.Color("#EAB308") // Amber
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Points = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)
)

var statusColors = map[status.Status]lipgloss.Style{
	status.Assigned:   lipgloss.NewStyle().Foreground(TextDim),
	status.InProgress: lipgloss.NewStyle().Foreground(Secondary),
	status.Overdue:    lipgloss.NewStyle().Foreground(Error).Bold(true),
	status.Completed:  lipgloss.NewStyle().Foreground(Success),
}

// ForStatus returns the style an assignment status is rendered in.
func ForStatus(s status.Status) lipgloss.Style {
	if st, ok := statusColors[s]; ok {
		return st
	}
	return Body
}

var stateColors = map[progression.State]lipgloss.Style{
	progression.StateLocked:         lipgloss.NewStyle().Foreground(Border),
	progression.StateUnlocked:       lipgloss.NewStyle().Foreground(Text),
	progression.StateInProgress:     lipgloss.NewStyle().Foreground(Secondary),
	progression.StateCompleted:      lipgloss.NewStyle().Foreground(Success),
	progression.StateFailedRemedial: lipgloss.NewStyle().Foreground(Warning).Bold(true),
}

// ForState returns the style a step state is rendered in.
func ForState(s progression.State) lipgloss.Style {
	if st, ok := stateColors[s]; ok {
		return st
	}
	return Body
}
