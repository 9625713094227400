package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arong/lmsengine/internal/ui/theme"
)

var pointsCmd = &cobra.Command{
	Use:   "points <user>",
	Short: "Show a user's points ledger and badges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		aw := rt.eng.Awarder()
		entries, err := aw.Entries(ctx, args[0])
		if err != nil {
			return fmt.Errorf("query ledger: %w", err)
		}
		awards, err := aw.Awards(ctx, args[0])
		if err != nil {
			return fmt.Errorf("query badges: %w", err)
		}

		out := cmd.OutOrStdout()
		total := 0
		fmt.Fprintf(out, "%-19s  %-12s  %-14s  %s\n", "When", "Rule", "Source", "Points")
		fmt.Fprintln(out, strings.Repeat("─", 60))
		for _, e := range entries {
			total += e.Points
			fmt.Fprintf(out, "%-19s  %-12s  %-14s  %6d\n",
				e.CreatedAt.In(cfg.Location()).Format(time.DateTime), e.RuleID, e.SourceID, e.Points)
		}
		fmt.Fprintln(out, theme.Points.Render(fmt.Sprintf("total %d pts", total)))

		if len(awards) > 0 {
			fmt.Fprintln(out)
			names := map[string]string{}
			for _, b := range rt.cat.Gamification.Badges {
				names[b.ID] = b.Name
			}
			for _, a := range awards {
				fmt.Fprintf(out, "%s  %s (%s)\n",
					a.AwardedAt.In(cfg.Location()).Format(time.DateOnly), theme.Title.Render(names[a.BadgeID]), a.BadgeID)
			}
		}
		return nil
	},
}
