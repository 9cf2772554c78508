package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glossmerge/internal/engine"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download and trim the latest run's pending videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			result, runID, err := engine.New(cfg, logger).Fetch(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Fetch pass for run %s\n", runID)
			fmt.Fprintln(out, renderStatusLine("done", statusOK, fmt.Sprintf("%d", result.Done), colorize))
			fmt.Fprintln(out, renderStatusLine("skipped", statusInfo, fmt.Sprintf("%d", result.Skipped), colorize))
			failKind := statusOK
			if result.Failed > 0 {
				failKind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("failed", failKind, fmt.Sprintf("%d", result.Failed), colorize))
			if result.Failed > 0 {
				fmt.Fprintln(out, "Inspect failures with `glossmerge plan --status failed`")
			}
			return nil
		},
	}
}
