package logger

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/harrison/assetkeeper/internal/models"
	"github.com/harrison/assetkeeper/internal/progress"
)

var linePattern = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] \[(TRACE|DEBUG|INFO|WARN|ERROR)\] `)

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected []string
	}{
		{"trace shows all", "trace", []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}},
		{"debug hides trace", "debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info is default", "", []string{"INFO", "WARN", "ERROR"}},
		{"unknown falls back to info", "verbose", []string{"INFO", "WARN", "ERROR"}},
		{"case insensitive", "WARN", []string{"WARN", "ERROR"}},
		{"error only", "error", []string{"ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cl := NewConsoleLogger(&buf, tt.level)
			cl.LogTrace("t")
			cl.LogDebug("d")
			cl.LogInfo("i")
			cl.LogWarn("w")
			cl.LogError("e")

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != len(tt.expected) {
				t.Fatalf("expected %d lines, got %d:\n%s", len(tt.expected), len(lines), buf.String())
			}
			for i, l := range lines {
				m := linePattern.FindStringSubmatch(l)
				if m == nil {
					t.Errorf("line %q does not match the log format", l)
					continue
				}
				if m[1] != tt.expected[i] {
					t.Errorf("line %d: expected level %s, got %s", i, tt.expected[i], m[1])
				}
			}
		})
	}
}

func TestConsoleLoggerNilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "trace")
	cl.LogInfo("dropped")
	cl.Emit(progress.Event{Message: "dropped"})
	cl.LogOrganizeSummary(&models.OrganizeResult{}, time.Second)
}

func TestConsoleLoggerNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	if cl.colorOutput {
		t.Fatal("color must be disabled for non-terminal writers")
	}
	cl.LogError("plain")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("unexpected escape codes in %q", buf.String())
	}
}

func TestConsoleLoggerEmit(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.Emit(progress.Event{Stage: progress.StageOrganize, Level: progress.LevelInfo, Message: "moved wood.jpg", Current: 1, Total: 2})
	cl.Emit(progress.Event{Stage: progress.StageScan, Level: progress.LevelWarn, Message: "cannot open house.max"})
	cl.Emit(progress.Event{Stage: progress.StageScan, Level: progress.LevelDebug, Message: "hidden"})

	out := buf.String()
	if !strings.Contains(out, "[INFO] organize: [==========          ] 1/2 (50%) moved wood.jpg") {
		t.Errorf("counter event not rendered with a bar:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] scan: cannot open house.max") {
		t.Errorf("warn event missing:\n%s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug event should be filtered at info level")
	}
}

func TestConsoleLoggerIsProgressSink(t *testing.T) {
	var _ progress.Sink = NewConsoleLogger(nil, "")
	var _ progress.Sink = NewNoOpLogger()
	var _ Logger = NewConsoleLogger(nil, "")
	var _ Logger = NewNoOpLogger()
}

func TestLogOrganizeSummary(t *testing.T) {
	result := &models.OrganizeResult{RunID: "20260401-090000-abcd1234", Skipped: 1}
	result.Record(&models.FileOperation{Source: "/p/tex/a.jpg", Destination: "/p/maps/a.jpg", Action: models.ActionMove, Success: true})
	result.Record(&models.FileOperation{Source: "/p/dup/a.jpg", Action: models.ActionDelete, Success: true})
	result.Record(&models.FileOperation{Source: "/p/tex/b.png", Action: models.ActionMove, Error: "permission denied"})
	result.Conflicts = []models.Conflict{{Name: "tex.png", Candidate: "/p/subB/tex.png", RenamedTo: "/p/maps/tex_subB.png"}}
	result.Warnings = []models.IntegrityWarning{{Path: "/p/tex/c.jpg", Reason: "jpeg: truncated"}}

	var buf bytes.Buffer
	NewConsoleLogger(&buf, "info").LogOrganizeSummary(result, 90*time.Second)
	out := buf.String()

	for _, want := range []string{
		"=== Organize Summary ===",
		"Moved: 1",
		"Duplicates removed: 1",
		"Skipped: 1",
		"Failed: 1",
		"  - move /p/tex/b.png: permission denied",
		"  - /p/subB/tex.png kept as /p/maps/tex_subB.png",
		"  - /p/tex/c.jpg: jpeg: truncated",
		"Run: 20260401-090000-abcd1234",
		"Duration: 1m30s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	NewConsoleLogger(&buf, "warn").LogOrganizeSummary(result, time.Second)
	if buf.Len() != 0 {
		t.Errorf("summary should be filtered at warn level, got %q", buf.String())
	}
}

func TestLogAnalysis(t *testing.T) {
	result := models.NewReconciliationResult("/proj")
	result.Documents = []string{"/proj/house.max"}
	result.Textures.Add("C:/maps/wood.jpg")
	result.AddFile(&models.FileRecord{Path: "/proj/maps/wood.jpg", Name: "wood.jpg", Folder: "maps", Category: models.CategoryTexture, IsUsed: true})
	result.AddFile(&models.FileRecord{Path: "/proj/old/a.tga", Name: "a.tga", Folder: "old", Category: models.CategoryTexture})
	result.Missing.Add("E:/gone/brick.png")

	var buf bytes.Buffer
	NewConsoleLogger(&buf, "").LogAnalysis(result)
	out := buf.String()

	for _, want := range []string{
		"=== Analysis: /proj ===",
		"Documents: 1",
		"Linked: 1",
		"Unused: 1",
		"Missing: 1",
		"  - E:/gone/brick.png",
		"  old: 1 files, 0 used, 1 unused",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("analysis missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour + time.Second, "1h0m1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"trace", "DEBUG", " info ", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("ValidLevel(%q) = false", l)
		}
	}
	for _, l := range []string{"", "verbose", "fatal"} {
		if ValidLevel(l) {
			t.Errorf("ValidLevel(%q) = true", l)
		}
	}
}
