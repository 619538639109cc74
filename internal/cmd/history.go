package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/assetkeeper/internal/history"
)

// NewHistoryCommand creates the 'assetkeeper history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded file operations",
		Long: `Show the operation history.

Without flags the most recent operations are listed. --root groups the
operations of one project by organize run, --run lists one run in full.

Examples:
  assetkeeper history --limit 50
  assetkeeper history --root /projects/house
  assetkeeper history --run 20260401-090000-1a2b3c4d`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
	cmd.Flags().Int("limit", 20, "Number of recent operations to show (0 = all)")
	cmd.Flags().String("root", "", "Group operations of this project root by run")
	cmd.Flags().String("run", "", "Show every operation of one run")

	cmd.AddCommand(newHistoryPurgeCommand())
	return cmd
}

func newHistoryPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <run-id>",
		Short: "Remove the entries of one run from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, workingDir(), sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			n := s.history.DeleteRun(args[0])
			if n == 0 {
				return fmt.Errorf("no history entries for run %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries of run %s\n", n, args[0])
			return nil
		},
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, workingDir(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		entries := s.history.EntriesForRun(runID)
		if len(entries) == 0 {
			return fmt.Errorf("no history entries for run %s", runID)
		}
		printEntries(out, entries)
		return nil
	}

	if root, _ := cmd.Flags().GetString("root"); root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve root path: %w", err)
		}
		runs := s.history.RunsForRoot(abs)
		if len(runs) == 0 {
			fmt.Fprintf(out, "No runs recorded for %s\n", abs)
			return nil
		}
		printRuns(out, runs)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	entries := s.history.Recent(limit)
	if len(entries) == 0 {
		fmt.Fprintln(out, "History is empty.")
		return nil
	}
	printEntries(out, entries)
	return nil
}

func printEntries(w io.Writer, entries []history.Entry) {
	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	for _, e := range entries {
		status := ok.Sprint("ok  ")
		if !e.Success {
			status = fail.Sprint("FAIL")
		}
		line := fmt.Sprintf("%s %s %-7s %s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), status, e.Type, e.Source)
		if e.Destination != "" {
			line += " -> " + e.Destination
		}
		if e.Error != "" {
			line += " (" + e.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func printRuns(w io.Writer, runs []history.RunSummary) {
	label := color.New(color.FgCyan)
	fail := color.New(color.FgRed)
	for _, r := range runs {
		failed := fmt.Sprintf("%d failed", r.Failed)
		if r.Failed > 0 {
			failed = fail.Sprint(failed)
		}
		fmt.Fprintf(w, "%s  %s  %d ok, %s\n", label.Sprint(r.ID), r.Started.Local().Format("2006-01-02 15:04:05"), r.Succeeded, failed)
	}
}
