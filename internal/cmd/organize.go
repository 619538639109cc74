package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/assetkeeper/internal/pathmap"
)

// NewOrganizeCommand creates the 'assetkeeper organize' command
func NewOrganizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organize <scene-file-or-folder>",
		Short: "Consolidate linked assets and set unused ones aside",
		Long: `Analyze the target, then reorganize the project root:

  - referenced files are gathered into the linked folder (default "maps")
  - identical duplicates are deleted, differing ones are kept under a
    folder-suffixed name
  - unreferenced files are moved into the unused folder (default "unused")
  - folders left empty are removed

Files are backed up before they are moved or deleted, and every operation
is recorded in the history so it can be undone with 'assetkeeper undo' or
'assetkeeper restore <run-id>'.

Examples:
  assetkeeper organize house.max
  assetkeeper organize --copy --keep-duplicates house.max
  assetkeeper organize --export-mappings paths.txt ./scenes`,
		Args: cobra.ExactArgs(1),
		RunE: runOrganize,
	}
	addPipelineFlags(cmd)
	cmd.Flags().Bool("copy", false, "Copy files instead of moving them")
	cmd.Flags().Bool("keep-duplicates", false, "Keep identical duplicates instead of deleting them")
	cmd.Flags().Bool("full-hash", false, "Compare whole files when detecting duplicates")
	cmd.Flags().Bool("no-backup", false, "Do not back up files before moving or deleting them")
	cmd.Flags().String("backup-dir", "", "Backup directory (default: $TMPDIR/assetkeeper-backups)")
	cmd.Flags().String("export-mappings", "", "Write old|new path pairs of relocated files to this file")
	cmd.Flags().Bool("json", false, "Print the organize result as JSON")
	return cmd
}

func runOrganize(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString("root")
	target, absRoot, projectDir, err := targetPaths(args[0], root)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, projectDir, sessionOptions{fileLog: true, flags: pipelineFlags(cmd)})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := s.svc.Analyze(ctx, target, absRoot)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	s.log.LogAnalysis(result)

	start := time.Now()
	out, err := s.svc.Organize(ctx, result)
	if out != nil {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if jerr := writeJSON(cmd.OutOrStdout(), out); jerr != nil {
				return jerr
			}
		} else {
			s.log.LogOrganizeSummary(out, time.Since(start))
		}
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("organize interrupted; completed operations are in the history")
	}
	if err != nil {
		return fmt.Errorf("organize failed: %w", err)
	}

	if path, _ := cmd.Flags().GetString("export-mappings"); path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve mappings path: %w", err)
		}
		mappings := pathmap.FromOperations(out.Operations)
		if err := pathmap.WriteFile(s.fs, abs, mappings); err != nil {
			return fmt.Errorf("failed to write path mappings: %w", err)
		}
		s.log.LogInfo(fmt.Sprintf("wrote %d path mappings to %s", len(mappings), abs))
	}

	if failed := out.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d operations failed", len(failed), len(out.Operations))
	}
	return nil
}
