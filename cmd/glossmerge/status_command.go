package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glossmerge/internal/manifest"
	"glossmerge/internal/records"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the latest run and its split distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := manifest.Open(cfg.ManifestPath())
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.LatestRun(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if run == nil {
				fmt.Fprintln(out, "No reconciliation run recorded yet")
				return nil
			}

			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintln(out, renderStatusLine("seed", statusInfo, fmt.Sprintf("%d", run.Seed), colorize))
			fmt.Fprintln(out, renderStatusLine("records", statusInfo,
				fmt.Sprintf("%d wlasl, %d msasl, %d discarded", run.WLASLTotal, run.MSASLTotal, run.Discarded), colorize))
			fmt.Fprintln(out, renderStatusLine("ratio", statusInfo,
				fmt.Sprintf("target %s, achieved %s", run.TargetRatio, run.AchievedRatio), colorize))

			counts, err := store.SplitCounts(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			for _, split := range records.AllSplits {
				fmt.Fprintln(out, renderStatusLine(string(split), statusOK,
					fmt.Sprintf("%d records", counts[string(split)]), colorize))
			}

			warnings, err := store.Warnings(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			warnKind := statusOK
			if len(warnings) > 0 {
				warnKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("warnings", warnKind, fmt.Sprintf("%d", len(warnings)), colorize))

			pending, err := store.PlanItems(cmd.Context(), run.ID, manifest.PlanPending)
			if err != nil {
				return err
			}
			failed, err := store.PlanItems(cmd.Context(), run.ID, manifest.PlanFailed)
			if err != nil {
				return err
			}
			fetchKind := statusOK
			if len(failed) > 0 {
				fetchKind = statusError
			} else if len(pending) > 0 {
				fetchKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("fetch", fetchKind,
				fmt.Sprintf("%d pending, %d failed", len(pending), len(failed)), colorize))
			return nil
		},
	}
}
