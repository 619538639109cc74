package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRestoreCommand creates the 'assetkeeper restore' command
func NewRestoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <run-id>",
		Short: "Put back every file backed up by an organize run",
		Long: `Restore every file snapshotted by one organize run to its original path
and remove the copies the run placed in the linked and unused folders.

Run ids are printed at the end of each organize run and listed by
'assetkeeper backups list'.

Examples:
  assetkeeper restore 20260401-090000-1a2b3c4d
  assetkeeper restore --cleanup 20260401-090000-1a2b3c4d`,
		Args: cobra.ExactArgs(1),
		RunE: runRestore,
	}
	cmd.Flags().Bool("cleanup", false, "Delete the backup after a successful restore")
	cmd.Flags().String("backup-dir", "", "Backup directory (default: $TMPDIR/assetkeeper-backups)")
	return cmd
}

func runRestore(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, workingDir(), sessionOptions{fileLog: true, flags: backupFlags(cmd)})
	if err != nil {
		return err
	}
	defer s.Close()

	cleanup, _ := cmd.Flags().GetBool("cleanup")
	summary, err := s.svc.RestoreRun(args[0], cleanup)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Restored %d files from run %s\n", len(summary.Restored), summary.RunID)
	if len(summary.Removed) > 0 {
		fmt.Fprintf(out, "Removed %d relocated copies\n", len(summary.Removed))
	}
	if summary.Cleaned {
		fmt.Fprintln(out, "Backup deleted")
	}
	return nil
}
