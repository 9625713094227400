package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arong/lmsengine/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the catalog of users, content, rules and gamification",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a catalog file and print what it contains",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Catalog
		if len(args) == 1 {
			path = args[0]
		}
		cat, err := catalog.Load(path)
		if err != nil {
			if catalog.IsStructural(err) {
				return fmt.Errorf("catalog is structurally invalid: %w", err)
			}
			return err
		}

		s := cat.Stats()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: ok (apiVersion %s)\n", path, cat.APIVersion)
		fmt.Fprintf(out, "  users         %d\n", s.Users)
		fmt.Fprintf(out, "  courses       %d\n", s.Courses)
		fmt.Fprintf(out, "  paths         %d\n", s.Paths)
		fmt.Fprintf(out, "  rules         %d\n", s.Rules)
		fmt.Fprintf(out, "  points rules  %d\n", s.PointsRules)
		fmt.Fprintf(out, "  badges        %d\n", s.Badges)
		return nil
	},
}

var catalogPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List learning paths and their steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(cfg.Catalog)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range cat.Paths() {
			fmt.Fprintf(out, "%s  %s\n", p.ID, p.Name)
			fmt.Fprintf(out, "  %-3s  %-14s  %-20s  %-14s  %-9s  %s\n",
				"#", "Step", "Type", "Content", "Mandatory", "Unlock")
			fmt.Fprintln(out, "  "+strings.Repeat("─", 86))
			for _, s := range p.Ordered() {
				unlock := "-"
				switch {
				case s.Unlock.Anytime:
					unlock = "anytime"
				case s.Unlock.LockedUntil != "":
					unlock = "after " + s.Unlock.LockedUntil
				}
				if s.Unlock.RemedialStepID != "" {
					unlock += ", remedial " + s.Unlock.RemedialStepID
				}
				if s.GroupLabel != "" {
					unlock += ", group " + s.GroupLabel
				}
				fmt.Fprintf(out, "  %-3d  %-14s  %-20s  %-14s  %-9t  %s\n",
					s.Order, s.ID, s.Type, s.ContentID, s.Mandatory, unlock)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var catalogRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List rules in force on a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseAt(cmd)
		if err != nil {
			return err
		}
		cat, err := catalog.Load(cfg.Catalog)
		if err != nil {
			return err
		}

		active := cat.Rules.ActiveOn(at.In(cfg.Location()))
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-12s  %-3s  %-10s  %-10s  %-20s  %s\n",
			"Rule", "Ver", "From", "To", "Target", "Conditions")
		fmt.Fprintln(out, strings.Repeat("─", 90))
		for _, r := range active {
			to := "-"
			if r.EffectiveTo != nil {
				to = r.EffectiveTo.Format(time.DateOnly)
			}
			conds := make([]string, len(r.Conditions))
			for i, c := range r.Conditions {
				conds[i] = fmt.Sprintf("%s %s %s", c.Field, c.Op, strings.Join(c.Values, "|"))
			}
			fmt.Fprintf(out, "%-12s  %-3d  %-10s  %-10s  %-20s  %s\n",
				r.ID, r.Version, r.EffectiveFrom.Format(time.DateOnly), to,
				fmt.Sprintf("%s %s", r.Target.Type, r.Target.ID), strings.Join(conds, " AND "))
		}
		fmt.Fprintf(out, "\n%d rules in force\n", len(active))
		return nil
	},
}

func init() {
	addAtFlag(catalogRulesCmd)

	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogPathsCmd)
	catalogCmd.AddCommand(catalogRulesCmd)
}
