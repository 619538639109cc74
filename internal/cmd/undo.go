package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/assetkeeper/internal/project"
)

// NewUndoCommand creates the 'assetkeeper undo' command
func NewUndoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Reverse the most recent file operation",
		Long: `Reverse the last successful move, copy or delete recorded in the history.

A move is moved back, a copy is removed and a deleted file is restored from
its backup. The reversal is itself recorded, so running undo twice does not
redo the operation.`,
		Args: cobra.NoArgs,
		RunE: runUndo,
	}
}

func runUndo(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, workingDir(), sessionOptions{fileLog: true})
	if err != nil {
		return err
	}
	defer s.Close()

	last, _ := s.history.Last()
	if err := s.svc.Undo(); err != nil {
		if errors.Is(err, project.ErrNothingToUndo) {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to undo.")
			return nil
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Undid %s of %s\n", last.Type, last.Source)
	return nil
}
