package progress

import (
	"github.com/go-pistonlauncher/pkg/utils"
)

// LogReporter writes progress to a logger every `step` percent
type LogReporter struct {
	logger   *utils.Logger
	step     uint64
	lastStep uint64
}

// NewLogReporter creates a reporter logging every step percent (default 10)
func NewLogReporter(logger *utils.Logger, step uint64) *LogReporter {
	if step == 0 || step > 100 {
		step = 10
	}
	return &LogReporter{logger: logger, step: step}
}

func (l *LogReporter) OnTotalKnown(total uint64) {
	l.lastStep = 0
	l.logger.Info("Processing %d manifest entries", total)
}

func (l *LogReporter) OnTick(completed, total uint64) {
	if total == 0 {
		return
	}
	bucket := completed * 100 / total / l.step
	if bucket > l.lastStep {
		l.lastStep = bucket
		l.logger.Info("Progress: %d/%d (%d%%)", completed, total, completed*100/total)
	}
}

func (l *LogReporter) OnFinished(result Result) {
	if result.Err != nil {
		l.logger.Error("%s failed after %d/%d entries: %v", result.Operation, result.Completed, result.Total, result.Err)
		return
	}
	if result.Problems > 0 {
		l.logger.Warn("%s finished with %d problem(s): %d/%d entries in %v", result.Operation, result.Problems, result.Completed, result.Total, result.Duration)
		return
	}
	l.logger.Info("%s finished: %d/%d entries in %v", result.Operation, result.Completed, result.Total, result.Duration)
}
