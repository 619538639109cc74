package logger

import (
	"fmt"
	"time"

	"github.com/harrison/assetkeeper/internal/models"
)

type summaryLine struct {
	text string
	tone tone
}

func line(t tone, format string, args ...interface{}) summaryLine {
	return summaryLine{text: fmt.Sprintf(format, args...), tone: t}
}

func countTone(n int, t tone) tone {
	if n > 0 {
		return t
	}
	return tonePlain
}

func analysisLines(result *models.ReconciliationResult) []summaryLine {
	if result == nil {
		return nil
	}
	lines := []summaryLine{
		line(toneHeader, "=== Analysis: %s ===", result.Root),
		line(tonePlain, "Documents: %d", len(result.Documents)),
		line(tonePlain, "References: %d (textures %d, proxies %d, other %d)",
			result.TotalReferences(), result.Textures.Len(), result.Proxies.Len(), result.Other.Len()),
		line(tonePlain, "Files: %d", len(result.Files)),
		line(countTone(result.Linked.Len(), toneSuccess), "Linked: %d", result.Linked.Len()),
		line(countTone(result.Unused.Len(), toneWarn), "Unused: %d", result.Unused.Len()),
		line(countTone(result.Missing.Len(), toneFail), "Missing: %d", result.Missing.Len()),
	}
	for _, ref := range result.Missing.Items() {
		lines = append(lines, line(toneFail, "  - %s", ref))
	}
	for _, folder := range result.Folders() {
		st := result.FolderStats[folder]
		lines = append(lines, line(toneLabel, "  %s: %d files, %d used, %d unused", folder, st.Total, st.Used, st.Unused))
	}
	for _, e := range result.Errors {
		lines = append(lines, line(toneFail, "Error: %s", e))
	}
	return lines
}

func organizeLines(result *models.OrganizeResult, duration time.Duration) []summaryLine {
	if result == nil {
		return nil
	}
	failed := result.Failed()
	lines := []summaryLine{
		line(toneHeader, "=== Organize Summary ==="),
		line(countTone(result.Moved, toneSuccess), "Moved: %d", result.Moved),
		line(countTone(result.Copied, toneSuccess), "Copied: %d", result.Copied),
		line(countTone(result.Deduplicated, toneSuccess), "Duplicates removed: %d", result.Deduplicated),
		line(tonePlain, "Skipped: %d", result.Skipped),
		line(countTone(len(failed), toneFail), "Failed: %d", len(failed)),
	}
	if len(result.PrunedDirs) > 0 {
		lines = append(lines, line(tonePlain, "Empty folders removed: %d", len(result.PrunedDirs)))
	}
	if result.RunID != "" {
		lines = append(lines, line(toneLabel, "Run: %s", result.RunID))
	}
	lines = append(lines, line(tonePlain, "Duration: %s", formatDuration(duration)))
	if result.Canceled {
		lines = append(lines, line(toneWarn, "Canceled before all files were processed"))
	}

	if len(failed) > 0 {
		lines = append(lines, line(toneFail, "Failed operations:"))
		for _, op := range failed {
			lines = append(lines, line(toneFail, "  - %s %s: %s", op.Action, op.Source, op.Error))
		}
	}
	if len(result.Conflicts) > 0 {
		lines = append(lines, line(toneWarn, "Name conflicts:"))
		for _, c := range result.Conflicts {
			lines = append(lines, line(toneWarn, "  - %s kept as %s", c.Candidate, c.RenamedTo))
		}
	}
	if len(result.Warnings) > 0 {
		lines = append(lines, line(toneWarn, "Integrity warnings:"))
		for _, w := range result.Warnings {
			lines = append(lines, line(toneWarn, "  - %s: %s", w.Path, w.Reason))
		}
	}
	return lines
}
