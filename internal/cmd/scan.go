package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/assetkeeper/internal/config"
	"github.com/harrison/assetkeeper/internal/models"
)

// NewScanCommand creates the 'assetkeeper scan' command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <scene-file>",
		Short: "List the asset paths referenced by a scene document",
		Long: `Extract every texture, proxy and other asset path referenced by one scene
document. Paths are printed as found in the document, relative paths are
resolved against the document's folder.

Examples:
  assetkeeper scan house.max
  assetkeeper scan --json house.max > refs.json`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}
	cmd.Flags().Bool("json", false, "Print the references as JSON")
	cmd.Flags().Bool("no-cache", false, "Do not use the scan cache")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	doc, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve document path: %w", err)
	}

	flags := config.Flags{NoCache: changedBool(cmd, "no-cache")}
	s, err := openSession(cmd, filepath.Dir(doc), sessionOptions{flags: flags})
	if err != nil {
		return err
	}
	defer s.Close()

	refs := s.svc.ScanDocument(doc)
	for _, d := range refs.Diagnostics {
		s.log.LogDebug(d)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), refs)
	}
	printReferences(cmd.OutOrStdout(), refs)
	if len(refs.Errors) > 0 && refs.Len() == 0 {
		return fmt.Errorf("scan failed: %s", refs.Errors[0])
	}
	return nil
}

func printReferences(w io.Writer, refs *models.ReferenceSet) {
	header := color.New(color.Bold)
	label := color.New(color.FgCyan)

	fmt.Fprintf(w, "%s %s\n", header.Sprint("Document:"), refs.Document)
	for _, cat := range models.Categories {
		set := refs.Set(cat)
		fmt.Fprintf(w, "%s (%d)\n", label.Sprint(string(cat)), set.Len())
		for _, p := range set.Items() {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	for _, e := range refs.Errors {
		fmt.Fprintf(w, "%s %s\n", color.New(color.FgRed).Sprint("error:"), e)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
