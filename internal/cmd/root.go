package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for assetkeeper
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assetkeeper",
		Short: "Find, consolidate and clean up the assets of 3D scene files",
		Long: `assetkeeper reads binary scene documents, extracts the texture, proxy
and other asset paths they reference, and matches them against the files
under a project folder.

It reports linked, unused and missing assets, gathers linked files into one
folder, moves unused files aside, removes identical duplicates, and keeps
backups and an operation history so every change can be undone.

Configuration is loaded from <project>/.assetkeeper/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints the returned error
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: <project>/.assetkeeper/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("log-dir", "", "Directory for run logs (default: <home>/logs)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Shortcut for --log-level debug")

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewAnalyzeCommand())
	cmd.AddCommand(NewOrganizeCommand())
	cmd.AddCommand(NewUndoCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewRestoreCommand())
	cmd.AddCommand(NewBackupsCommand())
	cmd.AddCommand(NewWatchCommand())

	return cmd
}
