package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arong/lmsengine/internal/engine"
	"github.com/arong/lmsengine/internal/entity"
)

var syncCmd = &cobra.Command{
	Use:   "sync [user...]",
	Short: "Evaluate auto-assignment rules for users and persist new assignments",
	Long: "Evaluates every rule in force against the given users (default: every\n" +
		"catalog user) as if the user event had just happened. Replaying a sync\n" +
		"creates nothing new.",
	RunE: func(cmd *cobra.Command, args []string) error {
		evt, _ := cmd.Flags().GetString("event")
		if !entity.UserEventType(evt).Valid() {
			return fmt.Errorf("unknown user event %q", evt)
		}
		at, err := parseAt(cmd)
		if err != nil {
			return err
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		users := rt.cat.Users()
		if len(args) > 0 {
			users = nil
			for _, id := range args {
				u, ok := rt.cat.User(id)
				if !ok {
					return fmt.Errorf("unknown user %q", id)
				}
				users = append(users, u)
			}
		}

		assigned, err := rt.eng.OnUserEvents(cmd.Context(), users, entity.UserEventType(evt), at)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		printAssigned(cmd.OutOrStdout(), assigned)
		return nil
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <user> <course|path> <content-id>",
	Short: "Assign content to a user by hand",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := entity.ContentType(args[1])
		if !t.Valid() {
			return fmt.Errorf("content type must be course or path, got %q", args[1])
		}
		at, err := parseAt(cmd)
		if err != nil {
			return err
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		a, err := rt.eng.Assign(cmd.Context(), args[0], t, args[2], at)
		if err != nil {
			return err
		}
		printAssigned(cmd.OutOrStdout(), []engine.Assigned{a})
		return nil
	},
}

func printAssigned(w io.Writer, assigned []engine.Assigned) {
	if len(assigned) == 0 {
		fmt.Fprintln(w, "No assignments.")
		return
	}
	created := 0
	for _, a := range assigned {
		mark := "="
		if a.Created {
			mark = "+"
			created++
		}
		rule := "manual"
		if a.Intent.RuleID != "" {
			rule = fmt.Sprintf("%s v%d", a.Intent.RuleID, a.Intent.RuleVersion)
		}
		fmt.Fprintf(w, "%s %-12s  %-6s  %-14s  %-10s  %s\n",
			mark, a.Intent.UserID, a.Intent.ContentType, a.Intent.ContentID, rule, a.AssignmentID)
	}
	fmt.Fprintf(w, "\n%d assignments, %d new\n", len(assigned), created)
}

func init() {
	syncCmd.Flags().String("event", string(entity.UserCreated), "User event to evaluate (user_created, user_updated)")
	addAtFlag(syncCmd)
	addAtFlag(assignCmd)
}
