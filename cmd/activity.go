package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arong/lmsengine/internal/engine"
	"github.com/arong/lmsengine/internal/entity"
	"github.com/arong/lmsengine/internal/ui/theme"
)

var activityCmd = &cobra.Command{
	Use:   "activity <user> <content-id>",
	Short: "Record a learner activity event against assigned content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, _ := cmd.Flags().GetString("step")
		kind, _ := cmd.Flags().GetString("kind")
		value, _ := cmd.Flags().GetFloat64("value")
		at, err := parseAt(cmd)
		if err != nil {
			return err
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.eng.RecordActivity(cmd.Context(), entity.ActivityEvent{
			UserID:    args[0],
			ContentID: args[1],
			StepID:    step,
			Kind:      entity.ActivityKind(kind),
			Value:     value,
			At:        at,
		})
		if err != nil {
			return err
		}
		printActivity(cmd.OutOrStdout(), res)
		return nil
	},
}

func printActivity(w io.Writer, res engine.ActivityResult) {
	if res.Progress.Skip != "" {
		fmt.Fprintf(w, "step %s: no change (%s)\n", res.Progress.StepID, res.Progress.Skip)
	}
	for _, t := range res.Progress.Transitions {
		fmt.Fprintf(w, "step %-14s %s -> %s  (%s)\n",
			t.StepID, theme.ForState(t.From).Render(string(t.From)), theme.ForState(t.To).Render(string(t.To)), t.Trigger)
	}
	fmt.Fprintf(w, "progress %.0f%%\n", res.ProgressPercent)
	if res.Completed {
		fmt.Fprintln(w, theme.Title.Render("assignment completed"))
	}

	for _, a := range res.Awards {
		o := a.Outcome
		switch {
		case o.Entry != nil:
			line := fmt.Sprintf("+%d pts  %s %s", o.Entry.Points, a.Event.Trigger, a.Event.SourceID)
			if o.Clamped {
				line += "  (daily cap)"
			}
			fmt.Fprintln(w, theme.Points.Render(line))
		case o.Skip != "":
			fmt.Fprintf(w, "no points for %s %s (%s)\n", a.Event.Trigger, a.Event.SourceID, o.Skip)
		}
		for _, b := range o.Badges {
			fmt.Fprintln(w, theme.Title.Render("badge earned: "+b.BadgeID))
		}
	}
}

func init() {
	activityCmd.Flags().String("step", "", "Path step id (omit for course assignments)")
	activityCmd.Flags().String("kind", string(entity.LessonView), "Activity kind (lesson_view, quiz_submit, attendance_mark)")
	activityCmd.Flags().Float64("value", 100, "Watch percent, quiz score or attendance percent")
	addAtFlag(activityCmd)
}
