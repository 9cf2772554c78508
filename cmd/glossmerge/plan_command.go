package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"glossmerge/internal/manifest"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the latest run's processing work plan",
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

			items, err := store.PlanItems(cmd.Context(), run.ID, statusFilter)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "No matching plan items")
				return nil
			}

			shown := items
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			rows := make([][]string, 0, len(shown))
			for _, item := range shown {
				rows = append(rows, []string{
					item.VideoFilename,
					item.Kind,
					describeCut(item),
					item.Status,
					item.Error,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{
					{title: "Filename"},
					{title: "Kind"},
					{title: "Cut"},
					{title: "Status"},
					{title: "Error"},
				},
				rows))
			if len(shown) < len(items) {
				fmt.Fprintf(out, "Showing %d of %d items\n", len(shown), len(items))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, done, failed, skipped)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum items to display (0 shows all)")
	return cmd
}

func describeCut(item manifest.PlanItem) string {
	switch {
	case item.HasFrames && item.EndFrame < 0:
		return fmt.Sprintf("frames %d..end", item.StartFrame)
	case item.HasFrames:
		return fmt.Sprintf("frames %d..%d", item.StartFrame, item.EndFrame)
	case item.HasTimes && item.EndSeconds <= 0:
		return formatCutSeconds(item.StartSeconds) + "s..end"
	case item.HasTimes:
		return formatCutSeconds(item.StartSeconds) + "s.." + formatCutSeconds(item.EndSeconds) + "s"
	default:
		return "whole video"
	}
}

func formatCutSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
