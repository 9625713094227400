package components

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/arong/lmsengine/internal/engine"
	"github.com/arong/lmsengine/internal/ui/theme"
)

const (
	contentColWidth = 22
	statusColWidth  = 12
	dueColWidth     = 16
)

// AssignmentRow renders one assignment with its derived status.
type AssignmentRow struct {
	Status engine.AssignmentStatus
	Width  int
}

// View renders the row.
func (r AssignmentRow) View() string {
	a := r.Status.Assignment
	rep := r.Status.Report

	content := pad(a.ContentType+" "+a.ContentID, contentColWidth)
	st := theme.ForStatus(rep.Status).Render(pad(string(rep.Status), statusColWidth))

	due := "no due date"
	if a.DueAt != nil {
		due = a.DueAt.Format(time.DateOnly)
	}
	due = theme.Hint.Render(pad(due, dueColWidth))

	var flags []string
	if rep.DueSoon {
		flags = append(flags, "due soon")
	}
	if rep.Inactive {
		flags = append(flags, "inactive")
	}

	prefix := theme.Body.Render(content) + st + due
	barWidth := r.Width - lipgloss.Width(prefix)
	out := prefix + NewProgressBar("", a.ProgressPercent, true, barWidth).View()
	if len(flags) > 0 {
		out += "  " + lipgloss.NewStyle().Foreground(theme.Warning).Render(strings.Join(flags, ", "))
	}
	return out
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return fmt.Sprintf("%.*s ", width-1, s)
}
