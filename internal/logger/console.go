// Package logger provides console and file logging for assetkeeper runs.
//
// Both loggers filter by level, print "[HH:MM:SS] [LEVEL] message" lines,
// receive pipeline progress events and render analysis and organize
// summaries. They are safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/assetkeeper/internal/models"
	"github.com/harrison/assetkeeper/internal/progress"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is the logging surface shared by the console and file loggers.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	Emit(e progress.Event)
	LogAnalysis(result *models.ReconciliationResult)
	LogOrganizeSummary(result *models.OrganizeResult, duration time.Duration)
}

// ConsoleLogger writes timestamped lines to a writer. Color is used only
// when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	scheme      *colorScheme
	bar         *ProgressBar
}

// NewConsoleLogger creates a ConsoleLogger that writes to writer.
// If writer is nil, messages are silently discarded.
// An empty or unknown logLevel defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	useColor := isTerminal(writer)
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: useColor,
		scheme:      newColorScheme(),
		bar:         NewProgressBar(0, 20, useColor),
	}
}

// isTerminal reports whether w is os.Stdout or os.Stderr attached to a TTY.
// NO_COLOR and a dumb terminal disable color through color.NoColor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || (f != os.Stdout && f != os.Stderr) {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// normalizeLogLevel lowercases level and falls back to "info".
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if ValidLevel(normalized) {
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func allowed(configured, message string) bool {
	return logLevelToInt(message) >= logLevelToInt(configured)
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return allowed(cl.logLevel, messageLevel)
}

// LogTrace logs a trace-level message.
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.writeLine(level, message)
}

// writeLine must be called with the mutex held.
func (cl *ConsoleLogger) writeLine(level, message string) {
	ts := timestamp()
	if cl.colorOutput {
		level = cl.scheme.level(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

// Emit prints a pipeline event. Counter events carry a progress bar.
func (cl *ConsoleLogger) Emit(e progress.Event) {
	level := string(e.Level)
	if level == "" {
		level = "info"
	}
	if cl.writer == nil || !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	message := e.Message
	if e.Total > 0 {
		cl.bar.Reset(e.Total)
		cl.bar.Update(e.Current)
		message = fmt.Sprintf("%s %s", cl.bar.Render(), e.Message)
	}
	if e.Stage != "" {
		message = e.Stage + ": " + message
	}
	cl.writeLine(strings.ToUpper(level), message)
}

// LogAnalysis prints the reference and file counts of an analysis.
func (cl *ConsoleLogger) LogAnalysis(result *models.ReconciliationResult) {
	cl.logSummary(analysisLines(result))
}

// LogOrganizeSummary prints the counters and failures of an organize run.
func (cl *ConsoleLogger) LogOrganizeSummary(result *models.OrganizeResult, duration time.Duration) {
	cl.logSummary(organizeLines(result, duration))
}

func (cl *ConsoleLogger) logSummary(lines []summaryLine) {
	if cl.writer == nil || !cl.shouldLog("info") || len(lines) == 0 {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var sb strings.Builder
	for _, l := range lines {
		text := l.text
		if cl.colorOutput {
			text = cl.scheme.paint(l.tone, text)
		}
		fmt.Fprintf(&sb, "[%s] %s\n", ts, text)
	}
	io.WriteString(cl.writer, sb.String())
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, remainder/time.Second)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, remainder/time.Second)
	case d > 0 && d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) Emit(progress.Event) {}
func (n *NoOpLogger) LogAnalysis(*models.ReconciliationResult) {}
func (n *NoOpLogger) LogOrganizeSummary(*models.OrganizeResult, time.Duration) {}
