package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), buf.String())
	return buf.String()
}

func TestCommandsEndToEnd(t *testing.T) {
	catalogPath, err := filepath.Abs("../internal/catalog/testdata/catalog.yaml")
	require.NoError(t, err)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("LMSENGINE_LOG_LEVEL", "error")
	t.Chdir(dir)
	db := filepath.Join(dir, "data", "lms.db")
	common := []string{"--db", db, "--catalog", catalogPath}
	with := func(args ...string) []string { return append(args, common...) }

	out := run(t, with("catalog", "validate")...)
	assert.Contains(t, out, "ok (apiVersion v1.0.0)")
	assert.Contains(t, out, "paths         1")

	out = run(t, with("sync", "--event", "user_created", "--at", "2025-02-01")...)
	assert.Contains(t, out, "+ u-ana")
	assert.Contains(t, out, "R1 v1")

	// A second sync creates nothing new.
	out = run(t, with("sync", "--event", "user_created", "--at", "2025-02-01")...)
	assert.Contains(t, out, ", 0 new")

	out = run(t, with("activity", "u-ana", "P1", "--step", "intro", "--kind", "lesson_view", "--value", "100", "--at", "2025-02-02T09:00:00Z")...)
	assert.Contains(t, out, "quiz")
	assert.Contains(t, out, "badge earned: safety-ready")

	out = run(t, with("history", "u-ana", "P1")...)
	assert.Contains(t, out, "first-activity")
	assert.Contains(t, out, "prerequisite-complete")

	out = run(t, with("points", "u-ana")...)
	assert.Contains(t, out, "pr-lesson")
	assert.Contains(t, out, "Safety Ready")

	out = run(t, with("status", "u-ana", "--at", "2025-02-02", "--width", "100")...)
	assert.Contains(t, out, "path P1")

	out = run(t, with("reminders", "--at", "2025-03-10")...)
	var kinds []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var r reminderLine
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		kinds = append(kinds, r.Kind)
	}
	assert.Contains(t, kinds, "inactive")
}

func TestVersion(t *testing.T) {
	out := run(t, "version")
	assert.Equal(t, "lmsengine (devel)\n", out)
}
