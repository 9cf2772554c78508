package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"glossmerge/internal/records"
	"glossmerge/internal/services"
	"glossmerge/internal/textutil"
)

// Report summarizes what one corpus loader accepted and rejected.
type Report struct {
	Parsed   int
	Skipped  int
	Deduped  int
	Accepted int
}

type wlaslEntry struct {
	Gloss     string          `json:"gloss"`
	Instances []wlaslInstance `json:"instances"`
}

type wlaslInstance struct {
	VideoID    string  `json:"video_id"`
	URL        string  `json:"url"`
	FPS        float64 `json:"fps"`
	FrameStart int     `json:"frame_start"`
	FrameEnd   int     `json:"frame_end"`
	Split      string  `json:"split"`
}

// LoadWLASL parses a WLASL_v0.3.json-shaped annotation file. When videoDir
// is non-empty, records whose video file already exists there get their
// LocalPath set so the planner can skip the download.
//
// WLASL frame indices are 1-based; frame_end -1 means end-of-video. A
// record spanning frame 1 to -1 covers the whole video and carries no
// interval.
func LoadWLASL(path, videoDir string) ([]records.Instance, *Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "ingest", "read wlasl json", path, err)
	}

	var entries []wlaslEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "ingest", "parse wlasl json", path, err)
	}

	report := &Report{}
	var out []records.Instance
	dedup := newDeduper()

	for _, entry := range entries {
		gloss := strings.TrimSpace(entry.Gloss)
		for _, instance := range entry.Instances {
			report.Parsed++
			if gloss == "" || strings.TrimSpace(instance.VideoID) == "" {
				report.Skipped++
				continue
			}
			split, err := records.ParseSplit(instance.Split)
			if err != nil {
				report.Skipped++
				continue
			}

			rec := records.Instance{
				InstanceID:    strings.TrimSpace(instance.VideoID),
				Source:        records.SourceWLASL,
				LabelText:     textutil.NormalizeLabel(gloss),
				URL:           NormalizeURL(instance.URL),
				FPS:           instance.FPS,
				OriginalSplit: split,
			}
			applyWLASLFrames(&rec, instance)

			if videoDir != "" {
				local := filepath.Join(videoDir, rec.InstanceID+".mp4")
				if _, err := os.Stat(local); err == nil {
					rec.LocalPath = local
				}
			}

			if dedup.seen(rec) {
				report.Deduped++
				continue
			}
			out = append(out, rec)
		}
	}
	report.Accepted = len(out)

	if err := records.ValidateInstances(records.SourceWLASL, out); err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

func applyWLASLFrames(rec *records.Instance, instance wlaslInstance) {
	wholeVideo := instance.FrameStart <= 1 && instance.FrameEnd < 0
	if wholeVideo {
		return
	}
	rec.HasInterval = true
	if instance.FPS > 0 {
		start := instance.FrameStart - 1
		if start < 0 {
			start = 0
		}
		rec.StartTime = float64(start) / instance.FPS
		if instance.FrameEnd > 0 {
			rec.EndTime = float64(instance.FrameEnd) / instance.FPS
		} else {
			rec.EndTime = -1
		}
		return
	}
	// Without a frame rate the frame indices cannot be converted; the
	// record still marks that a sub-interval exists.
	rec.StartTime = 0
	rec.EndTime = -1
}

// deduper drops within-corpus rows that describe the same content: same
// URL, label, and interval.
type deduper struct {
	keys map[string]struct{}
}

func newDeduper() *deduper {
	return &deduper{keys: make(map[string]struct{})}
}

func (d *deduper) seen(rec records.Instance) bool {
	if rec.URL == "" {
		return false
	}
	key := fmt.Sprintf("%s|%s|%t|%.3f|%.3f", rec.URL, rec.LabelText, rec.HasInterval, rec.StartTime, rec.EndTime)
	if _, ok := d.keys[key]; ok {
		return true
	}
	d.keys[key] = struct{}{}
	return false
}
