package ingest

import "glossmerge/internal/records"

// DetectOverlaps builds the cross-corpus overlap table: one entry per
// (WLASL record, MS-ASL record) pair sharing a normalized URL. A URL used
// by several records on either side yields the full set of pairings, each
// resolved independently downstream.
//
// Entries appear in MS-ASL order, then WLASL order within a URL, so the
// table is deterministic for identical inputs.
func DetectOverlaps(wlasl, msasl []records.Instance) []records.OverlapEntry {
	byURL := make(map[string][]records.Instance)
	for _, rec := range wlasl {
		if rec.URL == "" {
			continue
		}
		byURL[rec.URL] = append(byURL[rec.URL], rec)
	}

	var entries []records.OverlapEntry
	for _, b := range msasl {
		if b.URL == "" {
			continue
		}
		for _, a := range byURL[b.URL] {
			entries = append(entries, records.OverlapEntry{
				URL:           b.URL,
				WLASLID:       a.InstanceID,
				WLASLLabel:    a.LabelText,
				WLASLSplit:    a.OriginalSplit,
				MSASLID:       b.InstanceID,
				MSASLLabel:    b.LabelText,
				MSASLSplit:    b.OriginalSplit,
				MSASLStart:    b.StartTime,
				MSASLEnd:      b.EndTime,
				MSASLInterval: b.HasInterval,
			})
		}
	}
	return entries
}
