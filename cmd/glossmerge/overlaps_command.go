package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glossmerge/internal/engine"
)

func newOverlapsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "overlaps",
		Short: "Preview cross-corpus overlap classifications without persisting a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			decisions, warnings, err := engine.New(cfg, logger).PreviewOverlaps(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(decisions) == 0 {
				fmt.Fprintln(out, "No overlapping URLs between the corpora")
				return nil
			}

			shown := decisions
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			rows := make([][]string, 0, len(shown))
			for _, decision := range shown {
				rows = append(rows, []string{
					decision.Entry.URL,
					decision.Entry.WLASLID,
					decision.Entry.MSASLID,
					string(decision.Classification),
					fmt.Sprintf("%.3f", decision.Similarity),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{
					{title: "URL"},
					{title: "WLASL"},
					{title: "MSASL"},
					{title: "Classification"},
					{title: "Similarity", numeric: true},
				},
				rows))
			if len(shown) < len(decisions) {
				fmt.Fprintf(out, "Showing %d of %d pairings\n", len(shown), len(decisions))
			}

			colorize := shouldColorize(out)
			for _, warning := range warnings {
				fmt.Fprintln(out, renderStatusLine("ambiguous", statusWarn,
					fmt.Sprintf("%s wlasl=%s msasl=%s: %s", warning.URL, warning.WLASLID, warning.MSASLID, warning.Reason), colorize))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum pairings to display (0 shows all)")
	return cmd
}
