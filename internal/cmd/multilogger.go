package cmd

import (
	"time"

	"github.com/harrison/assetkeeper/internal/logger"
	"github.com/harrison/assetkeeper/internal/models"
	"github.com/harrison/assetkeeper/internal/progress"
)

// multiLogger implements logger.Logger by delegating to multiple loggers
type multiLogger struct {
	loggers []logger.Logger
}

// LogTrace forwards to all loggers
func (ml *multiLogger) LogTrace(message string) {
	for _, l := range ml.loggers {
		l.LogTrace(message)
	}
}

// LogDebug forwards to all loggers
func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

// LogInfo forwards to all loggers
func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

// LogWarn forwards to all loggers
func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

// LogError forwards to all loggers
func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

// Emit forwards to all loggers
func (ml *multiLogger) Emit(e progress.Event) {
	for _, l := range ml.loggers {
		l.Emit(e)
	}
}

// LogAnalysis forwards to all loggers
func (ml *multiLogger) LogAnalysis(result *models.ReconciliationResult) {
	for _, l := range ml.loggers {
		l.LogAnalysis(result)
	}
}

// LogOrganizeSummary forwards to all loggers
func (ml *multiLogger) LogOrganizeSummary(result *models.OrganizeResult, duration time.Duration) {
	for _, l := range ml.loggers {
		l.LogOrganizeSummary(result, duration)
	}
}
