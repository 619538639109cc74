package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/assetkeeper/internal/config"
	"github.com/harrison/assetkeeper/internal/project"
)

// NewBackupsCommand creates the 'assetkeeper backups' command group
func NewBackupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Inspect and prune organize backups",
	}
	cmd.PersistentFlags().String("backup-dir", "", "Backup directory (default: $TMPDIR/assetkeeper-backups)")

	cmd.AddCommand(newBackupsListCommand())
	cmd.AddCommand(newBackupsShowCommand())
	cmd.AddCommand(newBackupsDeleteCommand())
	cmd.AddCommand(newBackupsPurgeCommand())
	return cmd
}

func backupFlags(cmd *cobra.Command) config.Flags {
	return config.Flags{BackupDir: changedString(cmd, "backup-dir")}
}

// openBackups opens a session that must have a backup store.
func openBackups(cmd *cobra.Command) (*session, error) {
	s, err := openSession(cmd, workingDir(), sessionOptions{flags: backupFlags(cmd)})
	if err != nil {
		return nil, err
	}
	if s.backups == nil {
		s.Close()
		return nil, project.ErrBackupDisabled
	}
	return s, nil
}

func newBackupsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [project-root]",
		Short: "List the backup runs of a project (default: current folder)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openBackups(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			root := workingDir()
			if len(args) == 1 {
				if root, err = filepath.Abs(args[0]); err != nil {
					return fmt.Errorf("resolve project root: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			runs := s.backups.Runs(root)
			if len(runs) == 0 {
				fmt.Fprintf(out, "No backups for %s\n", root)
				return nil
			}
			label := color.New(color.FgCyan)
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  %d files  %s\n",
					label.Sprint(r.ID), r.Timestamp.Local().Format("2006-01-02 15:04:05"),
					len(r.Files), formatBytes(s.backups.Size(r.ID)))
			}
			return nil
		},
	}
}

func newBackupsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "List the files saved by one backup run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openBackups(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			info, ok := s.backups.Run(args[0])
			if !ok {
				return fmt.Errorf("backup run %s not found", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:     %s\n", info.ID)
			fmt.Fprintf(out, "Root:    %s\n", info.Root)
			fmt.Fprintf(out, "Created: %s\n", info.Timestamp.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Size:    %s\n", formatBytes(s.backups.Size(info.ID)))
			for _, e := range info.Files {
				fmt.Fprintf(out, "  %s\n", e.Original)
			}
			return nil
		},
	}
}

func newBackupsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete one backup run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openBackups(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.backups.DeleteRun(args[0]) {
				return fmt.Errorf("backup run %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted backup %s\n", args[0])
			return nil
		},
	}
}

func newBackupsPurgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete backup runs older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openBackups(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			days := s.cfg.Backup.RetentionDays
			if cmd.Flags().Changed("days") {
				days, _ = cmd.Flags().GetInt("days")
			}
			if days <= 0 {
				return errors.New("retention must be at least one day")
			}
			n := s.backups.PurgeOlderThan(days)
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d backup runs older than %d days from %s\n", n, days, s.backups.Dir())
			return nil
		},
	}
	cmd.Flags().Int("days", 0, "Age in days (default: backup.retention_days)")
	return cmd
}
