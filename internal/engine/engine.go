// Package engine orchestrates a full reconciliation run: ingest, overlap
// resolution, filename assignment, split assignment, persistence, and the
// CSV exports.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"glossmerge/internal/config"
	"glossmerge/internal/fetch"
	"glossmerge/internal/ingest"
	"glossmerge/internal/logging"
	"glossmerge/internal/manifest"
	"glossmerge/internal/naming"
	"glossmerge/internal/overlap"
	"glossmerge/internal/records"
	"glossmerge/internal/services"
	"glossmerge/internal/services/ffmpeg"
	"glossmerge/internal/services/ytdlp"
	"glossmerge/internal/split"
)

// Engine runs the reconciliation pipeline against one workspace.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs an engine.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logging.NewComponentLogger(logger, "engine")}
}

// Summary reports what a reconciliation run produced.
type Summary struct {
	RunID          string
	WLASL          ingest.Report
	MSASL          ingest.Report
	OverlapEntries int
	Discarded      int
	Collisions     int
	Moved          int
	LockedGroups   int
	CountsAfter    map[records.Split]int
	Target         [3]float64
	Achieved       [3]float64
	Warnings       []manifest.WarningRow
	MetadataCSV    string
	PlanCSV        string
}

// Reconcile executes the full pipeline and persists the outcome. The
// workspace is locked for the duration so concurrent runs cannot interleave
// writes to the manifest or the CSV outputs.
func (e *Engine) Reconcile(ctx context.Context) (*Summary, error) {
	if err := e.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "prepare workspace", "", err)
	}

	lock := flock.New(e.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "acquire lock", e.cfg.LockPath(), err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "acquire lock",
			fmt.Sprintf("another run holds %s", e.cfg.LockPath()), nil)
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.New().String()
	e.logger.Info("reconciliation run starting",
		logging.String("run_id", runID),
		logging.Int64("seed", e.cfg.Split.Seed))

	wlasl, msasl, summary, err := e.loadCorpora()
	if err != nil {
		return nil, err
	}
	summary.RunID = runID

	entries := ingest.DetectOverlaps(wlasl, msasl)
	summary.OverlapEntries = len(entries)
	e.logger.Info("overlap detection complete",
		logging.Int("wlasl", len(wlasl)),
		logging.Int("msasl", len(msasl)),
		logging.Int("entries", len(entries)))

	resolver := overlap.NewResolver(
		e.cfg.Reconcile.TimeToleranceSeconds,
		e.cfg.Reconcile.LabelSimilarityThreshold,
		e.cfg.Reconcile.AmbiguityMargin,
		e.cfg.Reconcile.StrictReferences,
		e.logger)
	result, err := resolver.Resolve(wlasl, msasl, entries)
	if err != nil {
		return nil, err
	}
	summary.Discarded = result.DiscardCount()

	survivors := overlap.Survivors(result, wlasl, msasl)
	plan := naming.NewAssigner(e.logger).Assign(survivors, result.Dispositions)
	summary.Collisions = len(plan.Collisions)

	outcome := split.NewAssigner(e.cfg.Ratio(), e.cfg.Split.Slack, e.cfg.Split.Seed, e.cfg.Split.Stratify, e.logger).
		Assign(survivors)
	summary.Moved = outcome.Moved
	summary.LockedGroups = outcome.LockedGroups
	summary.CountsAfter = outcome.CountsAfter
	summary.Target = outcome.Target
	summary.Achieved = outcome.Achieved

	summary.Warnings = collectWarnings(result, plan, outcome)

	if err := e.persist(ctx, summary, wlasl, msasl, result, plan, outcome); err != nil {
		return nil, err
	}

	e.logger.Info("reconciliation run complete",
		logging.String("run_id", runID),
		logging.Int("survivors", len(survivors)),
		logging.Int("discarded", summary.Discarded),
		logging.Int("moved", summary.Moved),
		logging.Int("warnings", len(summary.Warnings)))
	return summary, nil
}

// PreviewOverlaps runs ingest and overlap resolution without touching the
// manifest. Used for inspecting classifications before a full run.
func (e *Engine) PreviewOverlaps(ctx context.Context) ([]overlap.Decision, []overlap.Warning, error) {
	wlasl, msasl, _, err := e.loadCorpora()
	if err != nil {
		return nil, nil, err
	}
	entries := ingest.DetectOverlaps(wlasl, msasl)
	resolver := overlap.NewResolver(
		e.cfg.Reconcile.TimeToleranceSeconds,
		e.cfg.Reconcile.LabelSimilarityThreshold,
		e.cfg.Reconcile.AmbiguityMargin,
		e.cfg.Reconcile.StrictReferences,
		e.logger)
	result, err := resolver.Resolve(wlasl, msasl, entries)
	if err != nil {
		return nil, nil, err
	}
	return result.Decisions, result.Warnings, nil
}

// Fetch drains the latest run's pending plan items. Returns the run id the
// pass operated on.
func (e *Engine) Fetch(ctx context.Context) (fetch.Result, string, error) {
	store, err := manifest.Open(e.cfg.ManifestPath())
	if err != nil {
		return fetch.Result{}, "", err
	}
	defer store.Close()

	run, err := store.LatestRun(ctx)
	if err != nil {
		return fetch.Result{}, "", err
	}
	if run == nil {
		return fetch.Result{}, "", services.Wrap(services.ErrValidation, "engine", "fetch",
			"no reconciliation run recorded; run reconcile first", nil)
	}

	downloader, err := ytdlp.New(e.cfg.Tools.YtDlpBinary, e.cfg.Tools.DownloadTimeout)
	if err != nil {
		return fetch.Result{}, "", services.Wrap(services.ErrConfiguration, "engine", "fetch", "", err)
	}
	trimmer, err := ffmpeg.New(e.cfg.Tools.FFmpegBinary, e.cfg.Tools.FFprobeBinary, e.cfg.Tools.TrimTimeout)
	if err != nil {
		return fetch.Result{}, "", services.Wrap(services.ErrConfiguration, "engine", "fetch", "", err)
	}

	runner := fetch.NewRunner(downloader, trimmer, store, e.cfg.Paths.VideoDir, e.cfg.Paths.WorkDir, e.cfg.Tools.Workers, e.logger)
	result, err := runner.Run(ctx, run.ID)
	return result, run.ID, err
}

func (e *Engine) loadCorpora() ([]records.Instance, []records.Instance, *Summary, error) {
	summary := &Summary{}

	wlasl, wlaslReport, err := ingest.LoadWLASL(e.cfg.Paths.WLASLJSON, e.cfg.Paths.VideoDir)
	if err != nil {
		return nil, nil, nil, err
	}
	summary.WLASL = *wlaslReport

	msasl, msaslReport, err := ingest.LoadMSASL(e.cfg.MSASLSplitFiles())
	if err != nil {
		return nil, nil, nil, err
	}
	summary.MSASL = *msaslReport

	if err := errors.Join(
		records.ValidateInstances(records.SourceWLASL, wlasl),
		records.ValidateInstances(records.SourceMSASL, msasl),
	); err != nil {
		return nil, nil, nil, err
	}
	return wlasl, msasl, summary, nil
}

func collectWarnings(result *overlap.Result, plan *naming.Plan, outcome *split.Outcome) []manifest.WarningRow {
	var rows []manifest.WarningRow
	for _, w := range result.Warnings {
		rows = append(rows, manifest.WarningRow{
			Kind: "ambiguous_classification",
			Detail: fmt.Sprintf("url %s wlasl %s msasl %s: %s (similarity %.3f)",
				w.URL, w.WLASLID, w.MSASLID, w.Reason, w.Similarity),
		})
	}
	if result.MissingRefs != nil {
		for _, line := range splitErrorLines(result.MissingRefs) {
			rows = append(rows, manifest.WarningRow{Kind: "missing_reference", Detail: line})
		}
	}
	for _, collision := range plan.Collisions {
		rows = append(rows, manifest.WarningRow{
			Kind: "filename_collision",
			Detail: fmt.Sprintf("%s kept %s, renamed %s to %s",
				collision.Filename, collision.Kept, collision.Renamed, collision.NewName),
		})
	}
	if plan.Problems != nil {
		for _, line := range splitErrorLines(plan.Problems) {
			rows = append(rows, manifest.WarningRow{Kind: "unmaterializable_record", Detail: line})
		}
	}
	if outcome.Warning != nil {
		rows = append(rows, manifest.WarningRow{
			Kind: "unachievable_ratio",
			Detail: fmt.Sprintf("target %s achieved %s with %d locked groups",
				formatRatio(outcome.Warning.Target), formatRatio(outcome.Warning.Achieved), outcome.LockedGroups),
		})
	}
	return rows
}

func (e *Engine) persist(ctx context.Context, summary *Summary, wlasl, msasl []records.Instance, result *overlap.Result, plan *naming.Plan, outcome *split.Outcome) error {
	store, err := manifest.Open(e.cfg.ManifestPath())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateRun(ctx, manifest.Run{ID: summary.RunID, Seed: e.cfg.Split.Seed}); err != nil {
		return err
	}

	filenames := make(map[records.Key]string, len(plan.Assignments))
	for _, assignment := range plan.Assignments {
		filenames[assignment.Record.Key()] = assignment.Filename
	}

	var rows []manifest.RecordRow
	for _, collection := range [][]records.Instance{wlasl, msasl} {
		for _, rec := range collection {
			key := rec.Key()
			row := manifest.RecordRow{
				Source:        string(rec.Source),
				InstanceID:    rec.InstanceID,
				LabelText:     rec.LabelText,
				URL:           rec.URL,
				OriginalSplit: string(rec.OriginalSplit),
				Disposition:   string(result.Dispositions[key]),
				Locked:        outcome.Locked[key],
				VideoFilename: filenames[key],
			}
			if finalSplit, ok := outcome.Final[key]; ok {
				row.FinalSplit = string(finalSplit)
			}
			rows = append(rows, row)
		}
	}
	if err := store.SaveRecordRows(ctx, summary.RunID, rows); err != nil {
		return err
	}

	var discards []manifest.DiscardRow
	for _, d := range result.Discards {
		discards = append(discards, manifest.DiscardRow{
			Source:     string(d.Key.Source),
			InstanceID: d.Key.InstanceID,
			URL:        d.URL,
			Reason:     d.Reason,
		})
	}
	if err := store.SaveDiscards(ctx, summary.RunID, discards); err != nil {
		return err
	}
	if err := store.SaveWarnings(ctx, summary.RunID, summary.Warnings); err != nil {
		return err
	}

	var items []manifest.PlanItem
	for _, assignment := range plan.Assignments {
		instruction := assignment.Instruction
		items = append(items, manifest.PlanItem{
			VideoFilename: assignment.Filename,
			Source:        string(assignment.Record.Source),
			InstanceID:    assignment.Record.InstanceID,
			Kind:          string(instruction.Kind),
			SourcePath:    instruction.SourcePath,
			URL:           instruction.URL,
			HasFrames:     instruction.HasFrames,
			StartFrame:    instruction.StartFrame,
			EndFrame:      instruction.EndFrame,
			HasTimes:      instruction.HasTimes,
			StartSeconds:  instruction.StartSeconds,
			EndSeconds:    instruction.EndSeconds,
		})
	}
	if err := store.SavePlanItems(ctx, summary.RunID, items); err != nil {
		return err
	}

	summary.MetadataCSV = e.cfg.MetadataCSVPath()
	if err := store.ExportMetadataCSV(ctx, summary.RunID, summary.MetadataCSV); err != nil {
		return err
	}
	summary.PlanCSV = e.cfg.PlanCSVPath()
	if err := store.ExportPlanCSV(ctx, summary.RunID, summary.PlanCSV); err != nil {
		return err
	}

	return store.FinishRun(ctx, manifest.Run{
		ID:            summary.RunID,
		WLASLTotal:    len(wlasl),
		MSASLTotal:    len(msasl),
		Discarded:     summary.Discarded,
		Moved:         summary.Moved,
		TargetRatio:   formatRatio(outcome.Target),
		AchievedRatio: formatRatio(outcome.Achieved),
	})
}

func formatRatio(ratio [3]float64) string {
	return fmt.Sprintf("%.3f/%.3f/%.3f", ratio[0], ratio[1], ratio[2])
}

func splitErrorLines(err error) []string {
	var lines []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
