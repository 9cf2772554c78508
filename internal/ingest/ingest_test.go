package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"glossmerge/internal/ingest"
	"glossmerge/internal/records"
)

const wlaslFixture = `[
  {
    "gloss": "Book",
    "instances": [
      {"video_id": "05723", "url": "www.youtube.com/watch?v=abc", "fps": 25, "frame_start": 1, "frame_end": -1, "split": "train"},
      {"video_id": "05724", "url": "https://youtu.be/def", "fps": 25, "frame_start": 51, "frame_end": 125, "split": "val"},
      {"video_id": "", "url": "https://youtu.be/bad", "fps": 25, "frame_start": 1, "frame_end": -1, "split": "train"}
    ]
  },
  {
    "gloss": "drink",
    "instances": [
      {"video_id": "09001", "url": "https://youtu.be/ghi", "fps": 0, "frame_start": 10, "frame_end": 40, "split": "test"}
    ]
  }
]`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadWLASL(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "WLASL_v0.3.json", wlaslFixture)

	instances, report, err := ingest.LoadWLASL(path, "")
	if err != nil {
		t.Fatalf("LoadWLASL returned error: %v", err)
	}
	if report.Parsed != 4 || report.Skipped != 1 || report.Accepted != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}

	idx := records.Index(instances)

	whole := idx[records.Key{Source: records.SourceWLASL, InstanceID: "05723"}]
	if whole.HasInterval {
		t.Fatal("frame 1..-1 should mean whole video")
	}
	if whole.LabelText != "book" {
		t.Fatalf("label not normalized: %q", whole.LabelText)
	}
	if whole.URL != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("url not normalized: %q", whole.URL)
	}
	if whole.OriginalSplit != records.SplitTrain {
		t.Fatalf("unexpected split %q", whole.OriginalSplit)
	}

	segment := idx[records.Key{Source: records.SourceWLASL, InstanceID: "05724"}]
	if !segment.HasInterval {
		t.Fatal("expected interval for framed instance")
	}
	// Frames 51..125 at 25 fps: seconds [2.0, 5.0].
	if segment.StartTime != 2.0 || segment.EndTime != 5.0 {
		t.Fatalf("interval = [%v, %v], want [2, 5]", segment.StartTime, segment.EndTime)
	}

	noFPS := idx[records.Key{Source: records.SourceWLASL, InstanceID: "09001"}]
	if !noFPS.HasInterval || noFPS.EndTime != -1 {
		t.Fatalf("fps-less interval should stay open: %+v", noFPS)
	}
}

func TestLoadWLASLSetsLocalPathWhenVideoExists(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "WLASL_v0.3.json", wlaslFixture)
	videoDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(videoDir, "05723.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	instances, _, err := ingest.LoadWLASL(path, videoDir)
	if err != nil {
		t.Fatalf("LoadWLASL returned error: %v", err)
	}
	idx := records.Index(instances)
	if idx[records.Key{Source: records.SourceWLASL, InstanceID: "05723"}].LocalPath == "" {
		t.Fatal("expected local path for existing video")
	}
	if idx[records.Key{Source: records.SourceWLASL, InstanceID: "05724"}].LocalPath != "" {
		t.Fatal("expected empty local path for missing video")
	}
}

func TestLoadMSASL(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "MSASL_train.json", `[
      {"clean_text": "Cat", "url": "youtube.com/watch?v=abc", "start_time": 0, "end_time": 4.8, "fps": 30, "label": 3},
      {"clean_text": "", "text": "#dog", "url": "https://youtu.be/x", "start_time": 1.5, "end_time": 2.5, "fps": 30, "label": 4},
      {"clean_text": "broken", "url": "https://youtu.be/y", "start_time": 0, "end_time": 1}
    ]`)
	writeFixture(t, dir, "MSASL_test.json", `[
      {"clean_text": "cat", "url": "https://youtu.be/z", "start_time": 0, "end_time": 3.2, "fps": 24, "label": 3}
    ]`)

	files := map[string]string{
		"train": filepath.Join(dir, "MSASL_train.json"),
		"val":   filepath.Join(dir, "MSASL_val.json"),
		"test":  filepath.Join(dir, "MSASL_test.json"),
	}
	instances, report, err := ingest.LoadMSASL(files)
	if err != nil {
		t.Fatalf("LoadMSASL returned error: %v", err)
	}
	// The item without a label index is skipped; the missing val file is
	// tolerated.
	if report.Parsed != 4 || report.Skipped != 1 || report.Accepted != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}

	idx := records.Index(instances)
	first := idx[records.Key{Source: records.SourceMSASL, InstanceID: "train-00000"}]
	if first.LabelText != "cat" {
		t.Fatalf("label not normalized: %q", first.LabelText)
	}
	if first.OriginalSplit != records.SplitTrain {
		t.Fatalf("unexpected split %q", first.OriginalSplit)
	}
	if !first.HasInterval || first.EndTime != 4.8 {
		t.Fatalf("unexpected interval: %+v", first)
	}

	second := idx[records.Key{Source: records.SourceMSASL, InstanceID: "train-00001"}]
	if second.LabelText != "dog" {
		t.Fatalf("fallback text label not normalized: %q", second.LabelText)
	}

	testRec := idx[records.Key{Source: records.SourceMSASL, InstanceID: "test-00000"}]
	if testRec.OriginalSplit != records.SplitTest {
		t.Fatalf("unexpected split %q", testRec.OriginalSplit)
	}
}

func TestLoadMSASLFailsWhenNoFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"train": filepath.Join(dir, "missing.json")}
	if _, _, err := ingest.LoadMSASL(files); err == nil {
		t.Fatal("expected error when no annotation files exist")
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://youtu.be/a", "https://youtu.be/a"},
		{"http://example.com/v", "http://example.com/v"},
		{"www.youtube.com/watch?v=a", "https://www.youtube.com/watch?v=a"},
		{"youtube.com/watch?v=a", "https://youtube.com/watch?v=a"},
		{"ftp-like-garbage", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := ingest.NormalizeURL(tt.in); got != tt.want {
			t.Fatalf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectOverlaps(t *testing.T) {
	wlasl := []records.Instance{
		{InstanceID: "w1", Source: records.SourceWLASL, LabelText: "cat", URL: "https://youtu.be/shared", OriginalSplit: records.SplitTrain},
		{InstanceID: "w2", Source: records.SourceWLASL, LabelText: "kitten", URL: "https://youtu.be/shared", OriginalSplit: records.SplitVal},
		{InstanceID: "w3", Source: records.SourceWLASL, LabelText: "dog", URL: "https://youtu.be/only-wlasl", OriginalSplit: records.SplitTrain},
	}
	msasl := []records.Instance{
		{InstanceID: "m1", Source: records.SourceMSASL, LabelText: "cat", URL: "https://youtu.be/shared", OriginalSplit: records.SplitTest, HasInterval: true, StartTime: 0, EndTime: 5},
		{InstanceID: "m2", Source: records.SourceMSASL, LabelText: "fish", URL: "https://youtu.be/only-msasl", OriginalSplit: records.SplitTrain},
	}

	entries := ingest.DetectOverlaps(wlasl, msasl)
	// m1 pairs with both WLASL records on the shared URL; nothing else
	// overlaps.
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].WLASLID != "w1" || entries[1].WLASLID != "w2" {
		t.Fatalf("unexpected pairing order: %+v", entries)
	}
	for _, entry := range entries {
		if entry.MSASLID != "m1" {
			t.Fatalf("unexpected msasl id %q", entry.MSASLID)
		}
		if !entry.MSASLInterval || entry.MSASLEnd != 5 {
			t.Fatalf("entry missing msasl interval: %+v", entry)
		}
	}
}
