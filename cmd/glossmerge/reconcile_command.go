package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glossmerge/internal/engine"
	"glossmerge/internal/preflight"
	"glossmerge/internal/records"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run the full reconciliation pipeline and export the metadata tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if !skipPreflight {
				blockers := preflight.Blockers(preflight.RunAll(cfg))
				for _, result := range blockers {
					fmt.Fprintln(out, renderStatusLine(result.Name, statusError, result.Detail, colorize))
				}
				if len(blockers) > 0 {
					return fmt.Errorf("%d preflight checks failed", len(blockers))
				}
			}

			summary, err := engine.New(cfg, logger).Reconcile(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Run %s complete\n", summary.RunID)
			fmt.Fprintln(out, renderStatusLine("wlasl", statusInfo,
				fmt.Sprintf("%d accepted, %d skipped, %d deduped", summary.WLASL.Accepted, summary.WLASL.Skipped, summary.WLASL.Deduped), colorize))
			fmt.Fprintln(out, renderStatusLine("msasl", statusInfo,
				fmt.Sprintf("%d accepted, %d skipped, %d deduped", summary.MSASL.Accepted, summary.MSASL.Skipped, summary.MSASL.Deduped), colorize))
			fmt.Fprintln(out, renderStatusLine("overlaps", statusInfo, fmt.Sprintf("%d entries", summary.OverlapEntries), colorize))
			fmt.Fprintln(out, renderStatusLine("discarded", statusInfo, fmt.Sprintf("%d duplicates", summary.Discarded), colorize))
			fmt.Fprintln(out, renderStatusLine("collisions", collisionKind(summary.Collisions),
				fmt.Sprintf("%d filename collisions resolved", summary.Collisions), colorize))
			fmt.Fprintln(out, renderStatusLine("rebalanced", statusInfo,
				fmt.Sprintf("%d records moved, %d locked groups", summary.Moved, summary.LockedGroups), colorize))

			for _, split := range records.AllSplits {
				fmt.Fprintln(out, renderStatusLine(string(split), statusOK,
					fmt.Sprintf("%d records", summary.CountsAfter[split]), colorize))
			}

			warnKind := statusOK
			if len(summary.Warnings) > 0 {
				warnKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("warnings", warnKind, fmt.Sprintf("%d", len(summary.Warnings)), colorize))
			for _, warning := range summary.Warnings {
				fmt.Fprintln(out, renderStatusLine(warning.Kind, statusWarn, warning.Detail, colorize))
			}

			fmt.Fprintf(out, "Metadata: %s\n", summary.MetadataCSV)
			fmt.Fprintf(out, "Plan:     %s\n", summary.PlanCSV)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip workspace and tool checks before the run")
	return cmd
}

func collisionKind(count int) statusKind {
	if count > 0 {
		return statusWarn
	}
	return statusOK
}
