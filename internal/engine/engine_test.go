package engine_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"glossmerge/internal/config"
	"glossmerge/internal/engine"
	"glossmerge/internal/logging"
	"glossmerge/internal/manifest"
	"glossmerge/internal/records"
	"glossmerge/internal/testsupport"
)

const wlaslFixture = `[
  {
    "gloss": "book",
    "instances": [
      {"video_id": "05723", "url": "https://youtu.be/shared", "fps": 25, "frame_start": 1, "frame_end": -1, "split": "train"},
      {"video_id": "05724", "url": "https://youtu.be/solo", "fps": 25, "frame_start": 51, "frame_end": 125, "split": "val"}
    ]
  },
  {
    "gloss": "drink",
    "instances": [
      {"video_id": "09001", "url": "https://youtu.be/drink", "fps": 25, "frame_start": 1, "frame_end": -1, "split": "test"}
    ]
  }
]`

const msaslTrainFixture = `[
  {"clean_text": "book", "url": "https://youtu.be/shared", "start_time": 0, "end_time": 0, "fps": 30, "label": 1},
  {"clean_text": "cat", "url": "https://youtu.be/cat", "start_time": 1.0, "end_time": 3.5, "fps": 30, "label": 2}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	testsupport.WriteWLASL(t, cfg, wlaslFixture)
	testsupport.WriteMSASL(t, cfg, "train", msaslTrainFixture)
	return cfg
}

func TestReconcilePersistsRun(t *testing.T) {
	cfg := testConfig(t)
	eng := engine.New(cfg, logging.NewNop())

	summary, err := eng.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("missing run id")
	}
	if summary.WLASL.Accepted != 3 || summary.MSASL.Accepted != 2 {
		t.Fatalf("unexpected ingest reports: %+v %+v", summary.WLASL, summary.MSASL)
	}
	if summary.OverlapEntries != 1 {
		t.Fatalf("overlap entries = %d, want 1", summary.OverlapEntries)
	}
	// The shared-URL msasl record covers the whole video under the same
	// label, so it is discarded as an exact duplicate.
	if summary.Discarded != 1 {
		t.Fatalf("discarded = %d, want 1", summary.Discarded)
	}

	store, err := manifest.Open(cfg.ManifestPath())
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer store.Close()

	run, err := store.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if run == nil || run.ID != summary.RunID {
		t.Fatalf("run not persisted: %+v", run)
	}
	if run.WLASLTotal != 3 || run.MSASLTotal != 2 || run.Discarded != 1 {
		t.Fatalf("unexpected run counters: %+v", run)
	}

	meta, err := store.MetadataRows(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("metadata rows: %v", err)
	}
	if len(meta) != 4 {
		t.Fatalf("metadata rows = %d, want 4 survivors", len(meta))
	}
	for _, row := range meta {
		if row.VideoFilename == "" {
			t.Fatalf("survivor %s has no filename", row.GlobalID())
		}
		if row.FinalSplit == "" {
			t.Fatalf("survivor %s has no final split", row.GlobalID())
		}
	}

	discards, err := store.Discards(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("discards: %v", err)
	}
	if len(discards) != 1 || discards[0].InstanceID != "train-00000" {
		t.Fatalf("unexpected discards: %+v", discards)
	}

	for _, path := range []string{summary.MetadataCSV, summary.PlanCSV} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("export %s missing: %v", path, err)
		}
	}
	data, err := os.ReadFile(summary.MetadataCSV)
	if err != nil {
		t.Fatalf("read metadata csv: %v", err)
	}
	if !strings.HasPrefix(string(data), "instance_id,source_dataset,label_text,video_filename,final_split,url\n") {
		t.Fatalf("unexpected csv header: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestReconcileIsDeterministic(t *testing.T) {
	cfg := testConfig(t)
	eng := engine.New(cfg, logging.NewNop())
	ctx := context.Background()

	first, err := eng.Reconcile(ctx)
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	firstCSV, err := os.ReadFile(first.MetadataCSV)
	if err != nil {
		t.Fatalf("read first csv: %v", err)
	}

	second, err := eng.Reconcile(ctx)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	secondCSV, err := os.ReadFile(second.MetadataCSV)
	if err != nil {
		t.Fatalf("read second csv: %v", err)
	}
	if string(firstCSV) != string(secondCSV) {
		t.Fatal("identical inputs produced different metadata exports")
	}
}

func TestReconcileAppliesConflictLock(t *testing.T) {
	cfg := testConfig(t)
	eng := engine.New(cfg, logging.NewNop())

	summary, err := eng.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// wlasl 05723 (train) shares its URL with the discarded msasl record
	// (train), so no disagreement exists and nothing is locked.
	if summary.LockedGroups != 0 {
		t.Fatalf("locked groups = %d, want 0", summary.LockedGroups)
	}

	store, err := manifest.Open(cfg.ManifestPath())
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer store.Close()
	counts, err := store.SplitCounts(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("split counts: %v", err)
	}
	total := 0
	for _, split := range records.AllSplits {
		total += counts[string(split)]
	}
	if total != 4 {
		t.Fatalf("split counts cover %d records, want 4: %v", total, counts)
	}
}

func TestPreviewOverlaps(t *testing.T) {
	cfg := testConfig(t)
	eng := engine.New(cfg, logging.NewNop())

	decisions, warnings, err := eng.PreviewOverlaps(context.Background())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(decisions))
	}
	if decisions[0].Classification != "exact_duplicate" {
		t.Fatalf("unexpected classification %q", decisions[0].Classification)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
}

func TestFetchWithoutRunFails(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	eng := engine.New(cfg, logging.NewNop())
	if _, _, err := eng.Fetch(context.Background()); err == nil {
		t.Fatal("expected error when no run exists")
	}
}
