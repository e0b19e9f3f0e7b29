// Package notify hands finished run reports to their consumers. The
// actual delivery transport lives outside the core; this package only
// covers the local log sink.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/docwatch/docwatch/internal/watch"
)

// Log implements watch.Notifier by writing the run outcome to the
// structured log, one line per changed or failed target.
type Log struct {
	logger *zap.Logger
}

// NewLog builds a log notifier.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Notify implements watch.Notifier.
func (n *Log) Notify(_ context.Context, report watch.RunReport) error {
	n.logger.Info("run report",
		zap.String("run_id", report.RunID),
		zap.Int("targets", len(report.Reports)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("changed", report.Changed),
	)
	for _, r := range report.Reports {
		switch {
		case r.Failed():
			n.logger.Warn("target failed",
				zap.String("run_id", report.RunID),
				zap.String("target", r.Target.Name()),
				zap.String("stage", string(r.Stage)),
				zap.String("error", r.ErrorText()),
			)
		case r.HasChanges:
			n.logger.Info("target changed",
				zap.String("run_id", report.RunID),
				zap.String("target", r.Target.Name()),
				zap.String("content_type", string(r.ContentType)),
				zap.String("summary", r.Summary),
			)
		}
	}
	return nil
}
