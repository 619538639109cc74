package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harrison/assetkeeper/internal/config"
)

// changedBool returns the flag value only when it was set on the command line.
func changedBool(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

// changedString returns the flag value only when it was set on the command line.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// pipelineFlags collects the flags shared by analyze and organize.
func pipelineFlags(cmd *cobra.Command) config.Flags {
	return config.Flags{
		LinkedFolder:      changedString(cmd, "linked"),
		UnusedFolder:      changedString(cmd, "unused"),
		CopyInsteadOfMove: changedBool(cmd, "copy"),
		DeleteDuplicates:  invert(changedBool(cmd, "keep-duplicates")),
		FullHash:          changedBool(cmd, "full-hash"),
		NoBackup:          changedBool(cmd, "no-backup"),
		BackupDir:         changedString(cmd, "backup-dir"),
		Recursive:         changedBool(cmd, "recursive"),
		NoCache:           changedBool(cmd, "no-cache"),
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("root", "", "Project root (default: the scene's folder or the target folder)")
	cmd.Flags().String("linked", "", "Folder for referenced files (default from config: maps)")
	cmd.Flags().String("unused", "", "Folder for unreferenced files (default from config: unused)")
	cmd.Flags().Bool("recursive", false, "Search subfolders for scene documents when the target is a folder")
	cmd.Flags().Bool("no-cache", false, "Do not use the scan cache")
}

func invert(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := !*b
	return &v
}
