package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newWatchCmd creates the 'watch' subcommand: the long-running daemon
// that re-runs the pipeline on the configured interval.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Runs the pipeline on an interval until interrupted",
		Long: `Starts the watcher daemon. The pipeline runs immediately, then again
every watcher.interval_seconds. SIGINT or SIGTERM stops the daemon after
the in-flight run completes.`,
		RunE: runWatchCommand,
	}
}

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.startOps()

	interval := a.cfg.Interval()
	a.logger.Info("watcher started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := a.runOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			// A failed cycle (bad registry file, store down) is logged
			// and retried on the next tick.
			a.logger.Error("run cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			a.logger.Info("watcher stopping")
			return nil
		case <-ticker.C:
		}
	}
	a.logger.Info("watcher stopping")
	return nil
}
