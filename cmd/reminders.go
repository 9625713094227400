package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arong/lmsengine/internal/engine"
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Scan assignments and emit due-soon and inactivity reminders",
	Long: "Derives every assignment's status and writes one JSON line per reminder\n" +
		"to stdout, for a notification dispatcher to pick up.",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseAt(cmd)
		if err != nil {
			return err
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		sent, err := rt.eng.ScanReminders(cmd.Context(), at, jsonSink{w: cmd.OutOrStdout()})
		log.Info("reminder scan finished", zap.Int("sent", sent), zap.Error(err))
		if err != nil {
			return fmt.Errorf("reminders: %w", err)
		}
		return nil
	},
}

// jsonSink writes reminders as JSON lines.
type jsonSink struct {
	w io.Writer
}

type reminderLine struct {
	Kind         string  `json:"kind"`
	UserID       string  `json:"user_id"`
	AssignmentID string  `json:"assignment_id"`
	ContentType  string  `json:"content_type"`
	ContentID    string  `json:"content_id"`
	Status       string  `json:"status"`
	DueAt        *string `json:"due_at,omitempty"`
	DaysLeft     int     `json:"days_left"`
}

func (s jsonSink) Send(_ context.Context, r engine.Reminder) error {
	line := reminderLine{
		Kind:         string(r.Kind),
		UserID:       r.UserID,
		AssignmentID: r.AssignmentID,
		ContentType:  r.ContentType,
		ContentID:    r.ContentID,
		Status:       string(r.Status),
		DaysLeft:     r.DaysLeft,
	}
	if r.DueAt != nil {
		due := r.DueAt.Format(time.RFC3339)
		line.DueAt = &due
	}
	return json.NewEncoder(s.w).Encode(line)
}

func init() {
	addAtFlag(remindersCmd)
}
