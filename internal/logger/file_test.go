package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/assetkeeper/internal/models"
	"github.com/harrison/assetkeeper/internal/progress"
)

func readRunLog(t *testing.T, fl *FileLogger) string {
	t.Helper()
	data, err := os.ReadFile(fl.RunFile())
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	return string(data)
}

func TestNewFileLoggerCreatesRunLogAndSymlink(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	fl, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer fl.Close()

	name := filepath.Base(fl.RunFile())
	if !strings.HasPrefix(name, "run-") || !strings.HasSuffix(name, ".log") {
		t.Errorf("unexpected run log name %q", name)
	}

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("latest.log symlink missing: %v", err)
	}
	if target != name {
		t.Errorf("latest.log points to %q, want %q", target, name)
	}

	if !strings.Contains(readRunLog(t, fl), "=== assetkeeper run log ===") {
		t.Error("run log header missing")
	}
}

func TestFileLoggerReplacesSymlink(t *testing.T) {
	logDir := t.TempDir()
	if err := os.Symlink("run-old.log", filepath.Join(logDir, "latest.log")); err != nil {
		t.Fatalf("setup symlink: %v", err)
	}

	fl, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer fl.Close()

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != filepath.Base(fl.RunFile()) {
		t.Errorf("latest.log still points to %q", target)
	}
}

func TestFileLoggerLevelsAndEvents(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "warn")
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer fl.Close()

	fl.LogInfo("info line")
	fl.LogWarn("warn line")
	fl.LogError("error line")
	fl.Emit(progress.Event{Stage: progress.StageOrganize, Level: progress.LevelWarn, Message: "no backup for a.jpg"})
	fl.Emit(progress.Event{Stage: progress.StageOrganize, Level: progress.LevelError, Message: "move failed", Current: 3, Total: 4})
	fl.Emit(progress.Event{Stage: progress.StageScan, Message: "scanning house.max", Current: 1, Total: 1})

	out := readRunLog(t, fl)
	if strings.Contains(out, "info line") || strings.Contains(out, "scanning house.max") {
		t.Errorf("info messages should be filtered:\n%s", out)
	}
	for _, want := range []string{
		"[WARN] warn line",
		"[ERROR] error line",
		"[WARN] organize: no backup for a.jpg",
		"[ERROR] organize: (3/4) move failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("run log missing %q:\n%s", want, out)
		}
	}
}

func TestFileLoggerSummaryIsPlain(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer fl.Close()

	result := &models.OrganizeResult{}
	result.Record(&models.FileOperation{Source: "/p/a.jpg", Destination: "/p/maps/a.jpg", Action: models.ActionCopy, Success: true})
	fl.LogOrganizeSummary(result, 3*time.Second)

	out := readRunLog(t, fl)
	if !strings.Contains(out, "Copied: 1") || !strings.Contains(out, "Duration: 3s") {
		t.Errorf("summary missing:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("file log must not contain color codes")
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	fl.LogError("after close is dropped")
}
