package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newOnceCmd creates the 'once' subcommand: a single pass over the
// target registry, then exit.
func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Runs a single pipeline pass and exits",
		Long: `Fetches every registered target once, records snapshots, and exits.
The exit status is zero even when individual targets fail; per-target
failures are part of the run report, not process errors.`,
		RunE: runOnceCommand,
	}
}

func runOnceCommand(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.runOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	cmd.Printf("run %s: %d targets, %d succeeded, %d failed, %d changed\n",
		report.RunID, len(report.Reports), report.Succeeded, report.Failed, report.Changed)
	return nil
}
