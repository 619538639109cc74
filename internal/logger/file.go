package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/assetkeeper/internal/models"
	"github.com/harrison/assetkeeper/internal/progress"
)

// FileLogger writes one log file per run into a log directory and keeps a
// latest.log symlink pointing at the most recent one.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates logDir if needed and opens run-YYYYMMDD-HHMMSS.log in it.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}
	fl.writeRunLog("=== assetkeeper run log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))
	return fl, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return allowed(fl.logLevel, messageLevel)
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// Emit records a pipeline event. Counters are written as "(n/total)".
func (fl *FileLogger) Emit(e progress.Event) {
	level := string(e.Level)
	if level == "" {
		level = "info"
	}
	message := e.Message
	if e.Total > 0 {
		message = fmt.Sprintf("(%d/%d) %s", e.Current, e.Total, message)
	}
	if e.Stage != "" {
		message = e.Stage + ": " + message
	}
	fl.logWithLevel(strings.ToUpper(level), message)
}

// LogAnalysis records the counts of an analysis.
func (fl *FileLogger) LogAnalysis(result *models.ReconciliationResult) {
	fl.logSummary(analysisLines(result))
}

// LogOrganizeSummary records the counters and failures of an organize run.
func (fl *FileLogger) LogOrganizeSummary(result *models.OrganizeResult, duration time.Duration) {
	fl.logSummary(organizeLines(result, duration))
}

func (fl *FileLogger) logSummary(lines []summaryLine) {
	if !fl.shouldLog("info") || len(lines) == 0 {
		return
	}
	ts := timestamp()
	var sb strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&sb, "[%s] %s\n", ts, l.text)
	}
	fl.writeRunLog(sb.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
