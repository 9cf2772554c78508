// Package fetch materializes the work plan: downloading, trimming, and
// copying source videos into the final video directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"glossmerge/internal/fileutil"
	"glossmerge/internal/logging"
	"glossmerge/internal/manifest"
	"glossmerge/internal/naming"
	"glossmerge/internal/services"
	"glossmerge/internal/services/ffmpeg"
	"glossmerge/internal/services/ytdlp"
)

// Runner drains a run's pending plan items with a bounded worker pool.
type Runner struct {
	downloader ytdlp.Downloader
	trimmer    ffmpeg.Trimmer
	store      *manifest.Store
	videoDir   string
	workDir    string
	workers    int
	logger     *slog.Logger
}

// Result tallies the outcome of one fetch pass.
type Result struct {
	Done    int
	Failed  int
	Skipped int
}

// NewRunner constructs a fetch runner. workers below one is clamped to one.
func NewRunner(downloader ytdlp.Downloader, trimmer ffmpeg.Trimmer, store *manifest.Store, videoDir, workDir string, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		downloader: downloader,
		trimmer:    trimmer,
		store:      store,
		videoDir:   videoDir,
		workDir:    workDir,
		workers:    workers,
		logger:     logging.NewComponentLogger(logger, "fetch"),
	}
}

// Run processes every pending plan item for the run. Item failures are
// recorded in the manifest and tallied; only infrastructure errors abort
// the pass.
func (r *Runner) Run(ctx context.Context, runID string) (Result, error) {
	items, err := r.store.PlanItems(ctx, runID, manifest.PlanPending)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 {
		return Result{}, nil
	}
	if err := os.MkdirAll(r.videoDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create video directory: %w", err)
	}

	jobs := make(chan manifest.PlanItem)
	var mu sync.Mutex
	var result Result
	var wg sync.WaitGroup

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				status, detail := r.processItem(ctx, item)
				if err := r.store.UpdatePlanItem(ctx, runID, item.VideoFilename, status, detail); err != nil {
					r.logger.Error("record plan outcome",
						logging.String("filename", item.VideoFilename),
						logging.Error(err))
				}
				mu.Lock()
				switch status {
				case manifest.PlanDone:
					result.Done++
				case manifest.PlanSkipped:
					result.Skipped++
				default:
					result.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return result, ctx.Err()
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()

	r.logger.Info("fetch pass complete",
		logging.Int("done", result.Done),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped))
	return result, nil
}

func (r *Runner) processItem(ctx context.Context, item manifest.PlanItem) (string, string) {
	destPath := filepath.Join(r.videoDir, item.VideoFilename)
	if _, err := os.Stat(destPath); err == nil {
		return manifest.PlanSkipped, ""
	}

	var err error
	switch naming.InstructionKind(item.Kind) {
	case naming.CopyLocal:
		if item.SourcePath == "" {
			err = errors.New("copy requires a source path")
		} else {
			err = fileutil.CopyVerified(item.SourcePath, destPath)
		}
	case naming.FetchOnly:
		err = r.downloader.Download(ctx, item.URL, destPath)
	case naming.TrimLocal:
		err = r.trimmer.Trim(ctx, item.SourcePath, destPath, cutFromItem(item))
	case naming.FetchAndTrim:
		err = r.fetchAndTrim(ctx, item, destPath)
	default:
		err = fmt.Errorf("unknown plan kind %q", item.Kind)
	}

	if err == nil {
		switch naming.InstructionKind(item.Kind) {
		case naming.TrimLocal, naming.FetchAndTrim:
			err = r.verifyCutOutput(ctx, destPath)
		}
	}

	if err != nil {
		r.logger.Warn("plan item failed",
			logging.String("filename", item.VideoFilename),
			logging.String("kind", item.Kind),
			logging.Error(err))
		return manifest.PlanFailed, err.Error()
	}
	r.logger.Info("plan item complete",
		logging.String("filename", item.VideoFilename),
		logging.String("kind", item.Kind))
	return manifest.PlanDone, ""
}

func (r *Runner) fetchAndTrim(ctx context.Context, item manifest.PlanItem, destPath string) error {
	rawDir := filepath.Join(r.workDir, "raw")
	rawPath := filepath.Join(rawDir, item.VideoFilename)
	if err := r.downloader.Download(ctx, item.URL, rawPath); err != nil {
		return err
	}
	defer func() { _ = os.Remove(rawPath) }()
	return r.trimmer.Trim(ctx, rawPath, destPath, cutFromItem(item))
}

// verifyCutOutput probes the trimmed file so an empty cut fails the item
// instead of landing in the dataset. The check is skipped when the trimmer
// cannot probe or ffprobe is not configured.
func (r *Runner) verifyCutOutput(ctx context.Context, path string) error {
	prober, ok := r.trimmer.(ffmpeg.Prober)
	if !ok {
		return nil
	}
	duration, err := prober.ProbeDuration(ctx, path)
	if err != nil {
		if errors.Is(err, services.ErrConfiguration) {
			return nil
		}
		r.logger.Warn("duration probe failed",
			logging.String("path", path),
			logging.Error(err))
		return nil
	}
	if duration <= 0 {
		return fmt.Errorf("trimmed output %s has no duration", path)
	}
	return nil
}

func cutFromItem(item manifest.PlanItem) ffmpeg.Cut {
	return ffmpeg.Cut{
		HasFrames:    item.HasFrames,
		StartFrame:   item.StartFrame,
		EndFrame:     item.EndFrame,
		HasTimes:     item.HasTimes,
		StartSeconds: item.StartSeconds,
		EndSeconds:   item.EndSeconds,
	}
}
