package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/assetkeeper/internal/watch"
)

// NewWatchCommand creates the 'assetkeeper watch' command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <folder>",
		Short: "Re-run the analysis whenever a scene document changes",
		Long: `Analyze every scene document in a folder, then keep watching it and
analyze again each time a document is created, saved or removed.

Nothing is changed on disk. Stop with Ctrl+C.

Examples:
  assetkeeper watch ./scenes
  assetkeeper watch --recursive --debounce 2s /projects/house`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}
	addPipelineFlags(cmd)
	cmd.Flags().Duration("debounce", watch.DefaultDebounceDelay, "Wait this long after the last write before analyzing")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString("root")
	target, absRoot, projectDir, err := targetPaths(args[0], root)
	if err != nil {
		return err
	}
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		return fmt.Errorf("watch needs a folder: %s", target)
	}

	s, err := openSession(cmd, projectDir, sessionOptions{flags: pipelineFlags(cmd)})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	analyze := func() {
		result, err := s.svc.Analyze(ctx, target, absRoot)
		if err != nil {
			if ctx.Err() == nil {
				s.log.LogError(fmt.Sprintf("analysis failed: %v", err))
			}
			return
		}
		s.log.LogAnalysis(result)
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	w, err := watch.New(target, s.cfg.Scan.DocumentExtensions,
		watch.WithDebounce(debounce),
		watch.WithSkipDirs(s.cfg.Folders.Unused))
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}
	defer w.Close()

	analyze()
	s.log.LogInfo("watching " + target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Events():
			if !s.cfg.Scan.Recursive && filepath.Dir(ev.Path) != target {
				continue
			}
			s.log.LogInfo(fmt.Sprintf("%s %s", filepath.Base(ev.Path), ev.Op))
			analyze()
		case err := <-w.Errors():
			s.log.LogWarn(fmt.Sprintf("watch: %v", err))
		}
	}
}
