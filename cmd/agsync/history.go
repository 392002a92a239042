package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/autogitsync/agsync/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:     "history [path]",
	GroupID: "info",
	Short:   "Show recent sync attempts",
	Long: `Show the sync attempts recorded for a directory, newest first.

--since accepts a duration ("90m"), a timestamp ("2026-03-01T12:00:00Z")
or plain English ("2 hours ago", "yesterday", "last monday").

Examples:
  agsync history
  agsync history ~/notes --since "3 days ago" --limit 100
  agsync history --format json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot(args)
		if err != nil {
			fatal("%v", err)
		}

		sinceText, _ := cmd.Flags().GetString("since")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		var since time.Time
		if sinceText != "" {
			if since, err = parseSince(sinceText, time.Now()); err != nil {
				fatal("%v", err)
			}
		}

		db, err := journal.OpenExisting(journalPath(root))
		if errors.Is(err, journal.ErrNoJournal) {
			fmt.Printf("No sync history for %s\n", root)
			return
		}
		if err != nil {
			fatal("%v", err)
		}
		defer db.Close()

		runs, err := db.Runs(context.Background(), journal.Query{Since: since, Limit: limit})
		if err != nil {
			fatal("%v", err)
		}

		if format == "table" {
			writeRunTable(os.Stdout, runs)
			return
		}
		if runs == nil {
			runs = []journal.Run{}
		}
		if err := writeFormatted(os.Stdout, format, runs); err != nil {
			fatal("%v", err)
		}
	},
}

// parseSince resolves --since relative to now.
func parseSince(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)

	if d, err := time.ParseDuration(text); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, text, now.Location()); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: not a time or duration", text)
	}
	return r.Time, nil
}

func writeRunTable(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No sync attempts recorded")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "TRIGGER", "RESULT", "CHANGES", "TOOK")

	for _, r := range runs {
		t.Row(
			r.StartedAt.Local().Format(time.DateTime),
			r.Trigger,
			runResult(r),
			fmt.Sprint(r.Changes),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		)
	}

	fmt.Fprintln(w, t.Render())
}

func runResult(r journal.Run) string {
	switch {
	case r.Error != "":
		msg := r.Error
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		return "failed: " + msg
	case r.Committed:
		return "pushed " + shortCommit(r.Commit)
	default:
		return "nothing to commit"
	}
}

func init() {
	historyCmd.Flags().String("since", "", "Only attempts started after this time")
	historyCmd.Flags().Int("limit", 20, "Maximum number of attempts")
	historyCmd.Flags().String("format", "table", "Output format: table, json or yaml")

	rootCmd.AddCommand(historyCmd)
}
