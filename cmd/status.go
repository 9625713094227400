package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arong/lmsengine/internal/progression"
	"github.com/arong/lmsengine/internal/ui/components"
	"github.com/arong/lmsengine/internal/ui/layout"
	"github.com/arong/lmsengine/internal/ui/theme"
)

var statusCmd = &cobra.Command{
	Use:   "status [user]",
	Short: "Show derived assignment status for one user or everyone",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseAt(cmd)
		if err != nil {
			return err
		}
		width, _ := cmd.Flags().GetInt("width")

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		userID := ""
		if len(args) == 1 {
			userID = args[0]
			points, err := rt.eng.Awarder().Balance(ctx, userID)
			if err != nil {
				return err
			}
			streak, err := rt.eng.Awarder().Streak(ctx, userID, at)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, layout.RenderHeader(userID, points, streak, width))
		}

		statuses, err := rt.eng.Statuses(ctx, userID, at)
		if err != nil {
			return err
		}

		byUser := map[string][]string{}
		var order []string
		for _, s := range statuses {
			u := s.Assignment.UserID
			if _, ok := byUser[u]; !ok {
				order = append(order, u)
			}
			byUser[u] = append(byUser[u], components.AssignmentRow{Status: s, Width: width}.View())
		}
		if len(order) == 0 {
			fmt.Fprintln(out, layout.RenderSection("assignments", nil, width))
		}
		for _, u := range order {
			fmt.Fprintln(out, layout.RenderSection(u, byUser[u], width))
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <user> <content-id>",
	Short: "Show step states and the transition log of an assignment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		history, err := rt.eng.History(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(history) == 0 {
			fmt.Fprintln(out, "No transitions recorded.")
			return nil
		}
		fmt.Fprintf(out, "%-5s  %-20s  %-14s  %-16s  %-16s  %s\n",
			"Seq", "At", "Step", "From", "To", "Trigger")
		for _, t := range history {
			from, to := progression.State(t.From), progression.State(t.To)
			fmt.Fprintf(out, "%-5d  %-20s  %-14s  %s  %s  %s\n",
				t.Sequence, t.At.In(cfg.Location()).Format(time.DateTime), t.StepID,
				theme.ForState(from).Render(fmt.Sprintf("%-16s", from)),
				theme.ForState(to).Render(fmt.Sprintf("%-16s", to)),
				t.Trigger)
		}
		return nil
	},
}

func init() {
	addAtFlag(statusCmd)
	statusCmd.Flags().Int("width", layout.DefaultWidth, "Output width")
}
