package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"glossmerge/internal/records"
	"glossmerge/internal/services"
	"glossmerge/internal/textutil"
)

type msaslItem struct {
	OrgText   string  `json:"org_text"`
	CleanText string  `json:"clean_text"`
	Text      string  `json:"text"`
	URL       string  `json:"url"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	FPS       float64 `json:"fps"`
	Label     *int    `json:"label"`
}

// LoadMSASL parses the three per-split MS-ASL annotation files. MS-ASL
// items carry no identifier of their own, so each record gets a synthetic
// id of the form "<split>-<index>", unique within the corpus and stable
// across runs because file order is preserved.
//
// Missing files are tolerated (a release may omit a split); at least one
// file must load.
func LoadMSASL(files map[string]string) ([]records.Instance, *Report, error) {
	report := &Report{}
	var out []records.Instance
	dedup := newDeduper()
	loadedAny := false

	// Fixed order keeps synthetic ids stable regardless of map iteration.
	for _, splitName := range []string{"train", "val", "test"} {
		path, ok := files[splitName]
		if !ok {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, nil, services.Wrap(services.ErrConfiguration, "ingest", "read msasl json", path, err)
		}
		loadedAny = true

		var items []msaslItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, nil, services.Wrap(services.ErrValidation, "ingest", "parse msasl json", path, err)
		}

		split, err := records.ParseSplit(splitName)
		if err != nil {
			return nil, nil, err
		}

		for i, item := range items {
			report.Parsed++
			label := item.CleanText
			if strings.TrimSpace(label) == "" {
				label = item.Text
			}
			if strings.TrimSpace(label) == "" || item.Label == nil {
				report.Skipped++
				continue
			}

			rec := records.Instance{
				InstanceID:    fmt.Sprintf("%s-%05d", splitName, i),
				Source:        records.SourceMSASL,
				LabelText:     textutil.NormalizeLabel(label),
				URL:           NormalizeURL(item.URL),
				FPS:           item.FPS,
				OriginalSplit: split,
			}
			if item.StartTime > 0 || item.EndTime > 0 {
				rec.HasInterval = true
				rec.StartTime = item.StartTime
				rec.EndTime = item.EndTime
			}

			if dedup.seen(rec) {
				report.Deduped++
				continue
			}
			out = append(out, rec)
		}
	}

	if !loadedAny {
		return nil, nil, services.Wrap(services.ErrConfiguration, "ingest", "load msasl",
			"no MS-ASL annotation files found", nil)
	}
	report.Accepted = len(out)

	if err := records.ValidateInstances(records.SourceMSASL, out); err != nil {
		return nil, nil, err
	}
	return out, report, nil
}
