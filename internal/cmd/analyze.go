package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/assetkeeper/internal/models"
)

// NewAnalyzeCommand creates the 'assetkeeper analyze' command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <scene-file-or-folder>",
		Short: "Report linked, unused and missing assets of a project",
		Long: `Scan one scene document, or every scene document in a folder, and match
the referenced paths against the files under the project root.

Nothing is changed on disk.

Examples:
  assetkeeper analyze house.max
  assetkeeper analyze --recursive --show-unused ./scenes
  assetkeeper analyze --root /projects/house --json house.max`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}
	addPipelineFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the full analysis as JSON")
	cmd.Flags().Bool("show-unused", false, "List unused files grouped by folder")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString("root")
	target, absRoot, projectDir, err := targetPaths(args[0], root)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, projectDir, sessionOptions{flags: pipelineFlags(cmd)})
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.svc.Analyze(cmd.Context(), target, absRoot)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	s.log.LogAnalysis(result)
	if showUnused, _ := cmd.Flags().GetBool("show-unused"); showUnused {
		printUnusedByFolder(cmd.OutOrStdout(), result)
	}
	return nil
}

func printUnusedByFolder(w io.Writer, result *models.ReconciliationResult) {
	byFolder := result.UnusedByFolder()
	if len(byFolder) == 0 {
		fmt.Fprintln(w, "No unused files.")
		return
	}

	folders := make([]string, 0, len(byFolder))
	for f := range byFolder {
		folders = append(folders, f)
	}
	sort.Strings(folders)

	label := color.New(color.FgCyan, color.Bold)
	for _, folder := range folders {
		recs := byFolder[folder]
		fmt.Fprintf(w, "%s (%d)\n", label.Sprint(folder), len(recs))
		for _, rec := range recs {
			rel, err := filepath.Rel(result.Root, rec.Path)
			if err != nil {
				rel = rec.Path
			}
			fmt.Fprintf(w, "  %s  %s\n", rel, formatBytes(rec.Size))
		}
	}
}

// formatBytes renders n with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
